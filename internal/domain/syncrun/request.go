// Package syncrun defines the inputs and outcomes of one sync run.
package syncrun

import (
	"strings"

	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
)

// Request describes one sync run. It is not modified once the run starts.
type Request struct {
	SourceRoot      string
	DestinationRoot string
	Team            string
	WIP             bool
	DryRun          bool
	SkipExisting    bool
}

// Validate checks the fields that can be verified without touching the
// filesystem or the network.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SourceRoot) == "" {
		return errors.NewError(errors.CodeConfiguration,
			`source directory "" does not exist`, errors.ErrSourceNotFound)
	}
	if strings.TrimSpace(r.DestinationRoot) == "" {
		return errors.NewError(errors.CodeConfiguration,
			`destination directory "" is empty`, errors.ErrDestinationEmpty)
	}
	if strings.TrimSpace(r.Team) == "" {
		return errors.NewError(errors.CodeConfiguration,
			`team name "" is empty`, errors.ErrTeamEmpty)
	}
	return nil
}

// SearchNamespace returns the destination as used in an in:"..." query.
func (r Request) SearchNamespace() string {
	return strings.TrimSuffix(r.DestinationRoot, "/")
}
