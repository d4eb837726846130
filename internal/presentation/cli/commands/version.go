package commands

import (
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo holds version information for JSON output.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, short)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")

	return cmd
}

func runVersion(cmd *cobra.Command, short bool) error {
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	if short {
		if formatter.IsJSON() {
			return formatter.JSON(map[string]string{"version": Version})
		}
		return formatter.Println("%s", Version)
	}

	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if formatter.IsJSON() {
		return formatter.JSON(info)
	}

	formatter.Header("wikisync")
	formatter.Item("Version", info.Version)
	formatter.Item("Git Commit", info.GitCommit)
	formatter.Item("Build Date", info.BuildDate)
	formatter.Item("Go Version", info.GoVersion)
	formatter.Item("Platform", info.Platform)
	return nil
}
