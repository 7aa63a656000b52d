package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bereal_explorer/internal/extract"
)

const keySummaryFormat = "summary.format"

// exportSummary counts what one session recovered.
type exportSummary struct {
	Session        string `json:"session" yaml:"session"`
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Posts          int    `json:"posts" yaml:"posts"`
	Memories       int    `json:"memories" yaml:"memories"`
	Friends        int    `json:"friends" yaml:"friends"`
	FriendRequests int    `json:"friendRequests" yaml:"friendRequests"`
	Comments       int    `json:"comments" yaml:"comments"`
	Realmojis      int    `json:"realmojis" yaml:"realmojis"`
	Conversations  int    `json:"conversations" yaml:"conversations"`
	Messages       int    `json:"messages" yaml:"messages"`
	Events         int    `json:"events" yaml:"events"`
	Media          int    `json:"media" yaml:"media"`
	DroppedMedia   int    `json:"droppedMedia" yaml:"droppedMedia"`
	Warnings       int    `json:"warnings" yaml:"warnings"`
	Elapsed        string `json:"elapsed" yaml:"elapsed"`
}

func summarize(result *extract.Result) exportSummary {
	data := result.Data
	s := exportSummary{
		Session:        result.Media.Session(),
		Posts:          len(data.Posts),
		Memories:       len(data.Memories),
		Friends:        len(data.Friends),
		FriendRequests: len(data.FriendRequests),
		Comments:       len(data.Comments),
		Realmojis:      len(data.Realmojis),
		Conversations:  len(data.Conversations),
		Events:         len(data.Analytics),
		Media:          result.Stats.Media.Extracted,
		DroppedMedia:   result.Stats.Media.Dropped,
		Warnings:       len(result.Warnings),
		Elapsed:        result.Stats.Elapsed.String(),
	}
	if data.User != nil {
		s.Username = data.User.Username
	}
	for _, conversation := range data.Conversations {
		s.Messages += len(conversation.Messages)
	}
	return s
}

func writeSummary(w io.Writer, s exportSummary, format string) error {
	switch format {
	case "json":
		encoded, marshalErr := json.MarshalIndent(s, "", "  ")
		if marshalErr != nil {
			return fmt.Errorf("encode summary: %w", marshalErr)
		}
		_, writeErr := fmt.Fprintln(w, string(encoded))
		return writeErr
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if encodeErr := encoder.Encode(s); encodeErr != nil {
			return fmt.Errorf("encode summary: %w", encodeErr)
		}
		return encoder.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}

func (a *app) summaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary -f <export.zip> -gz <events.gz> [--format json|yaml]",
		Short: "Ingest an export and print what it contains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.v.GetString(keySummaryFormat)
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			result, ingestErr := a.ingest(cmd.Context(), cmd.ErrOrStderr())
			if ingestErr != nil {
				return ingestErr
			}
			defer result.Release()
			return writeSummary(cmd.OutOrStdout(), summarize(result), format)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	bindKey(cmd.Flags(), "format", keySummaryFormat)
	return cmd
}
