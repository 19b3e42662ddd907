package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/console"
	"github.com/goliatone/go-clinic-console/pagination"
	"github.com/goliatone/go-clinic-console/pkg/di"
)

func newEntitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entities clinicadm can browse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTITY\tLIST PATH\tPAGE SIZES\tURL VARIABLE")
			for _, e := range clinic.Entities() {
				sizes := make([]string, len(e.PageSizeOptions))
				for i, n := range e.PageSizeOptions {
					sizes[i] = fmt.Sprint(n)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Plural(), e.ListPath, strings.Join(sizes, ","), e.EnvVar())
			}
			return tw.Flush()
		},
	}
}

func lookupView(c *di.Container, name string) (console.View, error) {
	v, ok := c.Pages().Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (see 'clinicadm entities')", name)
	}
	return v, nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		page   int
		limit  int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "Print one page of an entity",
		Example: `  clinicadm list doctors
  clinicadm list patients --page 2 --limit 20
  clinicadm list doctors --search smith`,
		Args: cobra.ExactArgs(1),
		RunE: a.with(func(cmd *cobra.Command, args []string, c *di.Container) error {
			v, err := lookupView(c, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := v.Load(ctx); err != nil {
				return userError(err)
			}
			size := v.State().PageSize
			explicit := cmd.Flags().Changed("limit")
			want := c.Config().Console.PageSize
			if explicit {
				want = limit
			}
			if want != size {
				err := v.Paginate(ctx, 1, want)
				switch {
				case err == nil:
					size = want
				case explicit || !errors.Is(err, pagination.ErrInvalidPageSize):
					return userError(err)
				}
			}
			// search resets to page 1, so it runs before --page is applied
			if strings.TrimSpace(search) != "" {
				v.Search(ctx, search)
			}
			if page != v.State().Page {
				if err := v.Paginate(ctx, page, size); err != nil {
					return userError(err)
				}
			}
			return v.Render(cmd.OutOrStdout())
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size, one of the entity's page sizes (default from console.page_size)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by a search term")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show <entity> <id>",
		Short:   "Print one record by id",
		Example: `  clinicadm show doctor 674eedea9f2b5c0012345678`,
		Args:    cobra.ExactArgs(2),
		RunE: a.with(func(cmd *cobra.Command, args []string, c *di.Container) error {
			e, ok := clinic.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown entity %q (see 'clinicadm entities')", args[0])
			}
			path, ok := e.RecordPath(args[1])
			if !ok {
				if e.GetPath == "" {
					return fmt.Errorf("%s records cannot be fetched by id", e.Name)
				}
				return errors.New("an id is required")
			}
			rec, err := apiclient.FetchOne[map[string]any](cmd.Context(), c.Client(), e.Service, path)
			if err != nil {
				return userError(err)
			}
			return writeRecord(cmd.OutOrStdout(), rec)
		}),
	}
}

// writeRecord prints one field per line in key order.
func writeRecord(w io.Writer, rec map[string]any) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	for _, k := range keys {
		v, ok := rec[k].(string)
		if !ok {
			raw, err := json.Marshal(rec[k])
			if err != nil {
				return err
			}
			v = string(raw)
		}
		fmt.Fprintf(tw, "%s\t%s\n", k, v)
	}
	return tw.Flush()
}

func newSubmitCmd(a *app, modify bool) *cobra.Command {
	var (
		data string
		file string
	)
	use, short := "create <entity>", "Create a record from a JSON payload"
	if modify {
		use, short = "update <entity>", "Update a record from a JSON payload carrying its _id"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.with(func(cmd *cobra.Command, args []string, c *di.Container) error {
			v, err := lookupView(c, args[0])
			if err != nil {
				return err
			}
			raw, err := readPayload(cmd.InOrStdin(), data, file)
			if err != nil {
				return err
			}
			resp, err := v.SubmitJSON(cmd.Context(), raw, modify)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), messageOf(resp))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the JSON payload from a file ('-' for stdin)")
	return cmd
}

func readPayload(stdin io.Reader, data, file string) ([]byte, error) {
	switch {
	case data != "" && file != "":
		return nil, errors.New("use either --data or --file")
	case data != "":
		return []byte(data), nil
	case file == "-":
		return io.ReadAll(stdin)
	case file != "":
		return os.ReadFile(file)
	default:
		return nil, errors.New("a payload is required: use --data or --file")
	}
}

func messageOf(resp *apiclient.Response) string {
	if resp != nil && strings.TrimSpace(resp.Message) != "" {
		return resp.Message
	}
	return "OK"
}

// userError keeps the cause chain but shows the service message.
func userError(err error) error {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiclient.UserMessage(err), err)
	}
	return err
}
