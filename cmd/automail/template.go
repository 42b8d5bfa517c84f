package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/service"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "tpl"},
	Short:   "Manage message templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			templates, err := a.Templates.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSUBJECT\tATTACHMENTS")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Subject, len(t.Attachments))
			}
			return tw.Flush()
		})
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			t, err := a.Templates.Get(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\nName:    %s\nSubject: %s\n", t.ID, t.Name, t.Subject)
			for i, att := range t.Attachments {
				fmt.Fprintf(out, "Attachment %d: %s (%s)\n", i, att.Name, att.MimeType)
			}
			fmt.Fprintf(out, "\n%s\n", t.Content)
			return nil
		})
	},
}

var templateInput struct {
	name        string
	subject     string
	content     string
	contentFile string
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content := templateInput.content
		if templateInput.contentFile != "" {
			b, err := os.ReadFile(templateInput.contentFile)
			if err != nil {
				return fmt.Errorf("failed to read content file: %w", err)
			}
			content = string(b)
		}

		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			t, err := a.Templates.Create(ctx, service.TemplateInput{
				Name:    templateInput.name,
				Subject: templateInput.subject,
				Content: content,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		})
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			return a.Templates.Delete(ctx, args[0])
		})
	},
}

var templateAttachCmd = &cobra.Command{
	Use:   "attach <id> <file.pdf>...",
	Short: "Attach PDF files to a template",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				name := filepath.Base(path)
				if _, err := a.Templates.AddAttachment(ctx, args[0], name, fileType(name), data); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "attached %s\n", name)
			}
			return nil
		})
	},
}

// fileType guesses the MIME type from the extension
func fileType(name string) string {
	if t, _, err := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(name))); err == nil {
		return t
	}
	return "application/octet-stream"
}

func init() {
	f := templateCreateCmd.Flags()
	f.StringVar(&templateInput.name, "name", "", "template name")
	f.StringVar(&templateInput.subject, "subject", "", "subject line; {{company}} is replaced per recipient")
	f.StringVar(&templateInput.content, "content", "", "message body; {{company}} is replaced per recipient")
	f.StringVar(&templateInput.contentFile, "content-file", "", "read the message body from a file")
	templateCreateCmd.MarkFlagRequired("name")
	templateCreateCmd.MarkFlagsMutuallyExclusive("content", "content-file")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateCreateCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	templateCmd.AddCommand(templateAttachCmd)
}
