package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/service"
)

var batchCmd = &cobra.Command{
	Use:     "batch",
	Aliases: []string{"batches"},
	Short:   "Manage recipient batches",
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			batches, err := a.Batches.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRECIPIENTS")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", b.ID, b.Name, len(b.Recipients))
			}
			return tw.Flush()
		})
	},
}

var batchShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a batch and its recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			b, err := a.Batches.Get(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n", b.Name, b.ID)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECIPIENT\tCOMPANY\tEMAIL")
			for _, r := range b.Recipients {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Company, r.Email)
			}
			return tw.Flush()
		})
	},
}

var batchInput struct {
	name       string
	recipients []string
}

var batchCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a batch",
	Example: `  automail batch create --name "Kyoto hotels" \
    --recipient "Hotel Granvia=jobs@granvia.example" \
    --recipient "Ryokan Sakura=hr@sakura.example"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.BatchInput{Name: batchInput.name}
		for _, raw := range batchInput.recipients {
			r, err := parseRecipient(raw)
			if err != nil {
				return err
			}
			in.Recipients = append(in.Recipients, r)
		}

		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			b, err := a.Batches.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.ID)
			return nil
		})
	},
}

var batchImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create a batch from a YAML file",
	Long: `Create a batch from a YAML file of the form:

  name: Kyoto hotels
  recipients:
    - company: Hotel Granvia
      email: jobs@granvia.example`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readBatchFile(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			b, err := a.Batches.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d recipients)\n", b.ID, len(b.Recipients))
			return nil
		})
	},
}

var batchAddCmd = &cobra.Command{
	Use:   "add <id> <company=email>",
	Short: "Add a recipient to a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseRecipient(args[1])
		if err != nil {
			return err
		}

		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			_, r, err := a.Batches.AddRecipient(ctx, args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			return nil
		})
	},
}

var batchRemoveCmd = &cobra.Command{
	Use:   "remove <id> <recipient-id>",
	Short: "Remove a recipient from a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			_, err := a.Batches.RemoveRecipient(ctx, args[0], args[1])
			return err
		})
	},
}

var batchDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			return a.Batches.Delete(ctx, args[0])
		})
	},
}

// parseRecipient reads "Company=email"
func parseRecipient(raw string) (service.RecipientInput, error) {
	company, email, ok := strings.Cut(raw, "=")
	company, email = strings.TrimSpace(company), strings.TrimSpace(email)
	if !ok || company == "" || email == "" {
		return service.RecipientInput{}, fmt.Errorf("recipient %q must look like Company=email", raw)
	}
	return service.RecipientInput{Company: company, Email: email}, nil
}

type batchFile struct {
	Name       string `yaml:"name"`
	Recipients []struct {
		Company string `yaml:"company"`
		Email   string `yaml:"email"`
	} `yaml:"recipients"`
}

func readBatchFile(path string) (service.BatchInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return service.BatchInput{}, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var bf batchFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil {
		return service.BatchInput{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	in := service.BatchInput{Name: bf.Name}
	for _, r := range bf.Recipients {
		in.Recipients = append(in.Recipients, service.RecipientInput{Company: r.Company, Email: r.Email})
	}
	return in, nil
}

func init() {
	f := batchCreateCmd.Flags()
	f.StringVar(&batchInput.name, "name", "", "batch name")
	f.StringArrayVar(&batchInput.recipients, "recipient", nil, "recipient as Company=email (repeatable)")
	batchCreateCmd.MarkFlagRequired("name")

	batchCmd.AddCommand(batchListCmd)
	batchCmd.AddCommand(batchShowCmd)
	batchCmd.AddCommand(batchCreateCmd)
	batchCmd.AddCommand(batchImportCmd)
	batchCmd.AddCommand(batchAddCmd)
	batchCmd.AddCommand(batchRemoveCmd)
	batchCmd.AddCommand(batchDeleteCmd)
}
