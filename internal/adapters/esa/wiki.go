package esa

import (
	"context"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
)

// Ensure Wiki implements ports.WikiClientPort.
var _ ports.WikiClientPort = (*Wiki)(nil)

// Wiki adapts Client to ports.WikiClientPort.
type Wiki struct {
	client *Client
}

// NewWiki creates a Wiki backed by client.
func NewWiki(client *Client) *Wiki {
	return &Wiki{client: client}
}

func toDocument(p Post) document.RemoteDocument {
	return document.RemoteDocument{
		Number:   p.Number,
		Category: p.Category,
		Title:    p.Name,
		WIP:      p.WIP,
	}
}

// SearchDocuments implements ports.WikiClientPort.
func (w *Wiki) SearchDocuments(ctx context.Context, team string, q ports.SearchQuery) (*ports.SearchResult, error) {
	resp, snap, err := w.client.ListPosts(ctx, team, q.Query, q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}

	result := &ports.SearchResult{
		Documents: make([]document.RemoteDocument, 0, len(resp.Posts)),
		RateLimit: snap,
	}
	for _, p := range resp.Posts {
		result.Documents = append(result.Documents, toDocument(p))
	}
	if resp.NextPage != nil {
		result.NextPage = *resp.NextPage
	}
	return result, nil
}

// CreateDocument implements ports.WikiClientPort.
func (w *Wiki) CreateDocument(ctx context.Context, team string, doc ports.NewDocument) (*ports.WriteResult, error) {
	post, snap, err := w.client.CreatePost(ctx, team, CreatePostBody{
		Name:     doc.Title,
		BodyMD:   doc.Body,
		Tags:     nonNil(doc.Tags),
		Category: doc.Category,
		WIP:      doc.WIP,
		Message:  doc.Message,
	})
	if err != nil {
		return nil, err
	}
	return &ports.WriteResult{Document: toDocument(*post), FullName: post.FullName, RateLimit: snap}, nil
}

// UpdateDocument implements ports.WikiClientPort.
func (w *Wiki) UpdateDocument(ctx context.Context, team string, number int, doc ports.DocumentUpdate) (*ports.WriteResult, error) {
	post, snap, err := w.client.UpdatePost(ctx, team, number, UpdatePostBody{
		Name:    doc.Title,
		BodyMD:  doc.Body,
		Tags:    nonNil(doc.Tags),
		WIP:     doc.WIP,
		Message: doc.Message,
	})
	if err != nil {
		return nil, err
	}
	return &ports.WriteResult{Document: toDocument(*post), FullName: post.FullName, RateLimit: snap}, nil
}

// nonNil keeps an empty tag list serialized as [] rather than null.
func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
