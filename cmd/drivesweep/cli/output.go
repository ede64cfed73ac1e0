package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/db/models"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
	}
}

type statsView struct {
	TotalFiles       int64  `json:"totalFiles" yaml:"totalFiles"`
	UnusedFiles      int64  `json:"unusedFiles" yaml:"unusedFiles"`
	NeverViewedFiles int64  `json:"neverViewedFiles" yaml:"neverViewedFiles"`
	SharedFiles      int64  `json:"sharedFiles" yaml:"sharedFiles"`
	TotalSize        int64  `json:"totalSize" yaml:"totalSize"`
	UnusedSize       int64  `json:"unusedSize" yaml:"unusedSize"`
	LastScanTime     string `json:"lastScanTime,omitempty" yaml:"lastScanTime,omitempty"`
}

type fileView struct {
	FileID     string `json:"fileId" yaml:"fileId"`
	Name       string `json:"name" yaml:"name"`
	Size       int64  `json:"size" yaml:"size"`
	LastViewed string `json:"lastViewedTime,omitempty" yaml:"lastViewedTime,omitempty"`
	Owned      bool   `json:"isOwnedByUser" yaml:"isOwnedByUser"`
	Shared     bool   `json:"isShared" yaml:"isShared"`
	OwnerEmail string `json:"ownerEmail,omitempty" yaml:"ownerEmail,omitempty"`
}

func toStatsView(s cleanup.Stats) statsView {
	return statsView{
		TotalFiles:       s.TotalFiles,
		UnusedFiles:      s.UnusedCount,
		NeverViewedFiles: s.NeverViewedCount,
		SharedFiles:      s.SharedCount,
		TotalSize:        s.TotalSizeBytes,
		UnusedSize:       s.UnusedSizeBytes,
		LastScanTime:     formatTime(s.LastScanTime),
	}
}

func toFileViews(files []models.File) []fileView {
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		v := fileView{
			FileID:     f.FileID,
			Name:       f.Name,
			Size:       cleanup.ParseSize(f.Size),
			LastViewed: formatTime(f.LastViewedTime),
			Owned:      f.IsOwnedByUser,
			Shared:     f.IsShared,
		}
		if f.OwnerEmail != nil {
			v.OwnerEmail = *f.OwnerEmail
		}
		views = append(views, v)
	}
	return views
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// encode writes v as json or yaml. It reports false for the table format.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func renderStats(w io.Writer, format string, s cleanup.Stats) error {
	view := toStatsView(s)
	if done, err := encode(w, format, view); done || err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	heading.Fprintln(w, "📊 Drive usage")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total files\t%s\n", humanize.Comma(view.TotalFiles))
	fmt.Fprintf(tw, "Total size\t%s\n", humanize.IBytes(uint64(view.TotalSize)))
	fmt.Fprintf(tw, "Unused files\t%s (%s)\n", humanize.Comma(view.UnusedFiles), humanize.IBytes(uint64(view.UnusedSize)))
	fmt.Fprintf(tw, "Never viewed\t%s\n", humanize.Comma(view.NeverViewedFiles))
	fmt.Fprintf(tw, "Shared files\t%s\n", humanize.Comma(view.SharedFiles))
	lastScan := "never"
	if s.LastScanTime != nil {
		lastScan = humanize.Time(*s.LastScanTime)
	}
	fmt.Fprintf(tw, "Last scan\t%s\n", lastScan)
	return tw.Flush()
}

func renderFiles(w io.Writer, format, title string, files []models.File) error {
	views := toFileViews(files)
	if done, err := encode(w, format, views); done || err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s (%d)\n", title, len(views))
	if len(views) == 0 {
		color.New(color.FgGreen).Fprintln(w, "✅ Nothing to clean up")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE ID\tNAME\tSIZE\tLAST VIEWED\tOWNER")
	for _, v := range views {
		lastViewed := "never"
		if v.LastViewed != "" {
			lastViewed = v.LastViewed
		}
		owner := v.OwnerEmail
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.FileID, v.Name, humanize.IBytes(uint64(v.Size)), lastViewed, owner)
	}
	return tw.Flush()
}
