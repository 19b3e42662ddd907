package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-clinic-console/console"
	"github.com/goliatone/go-clinic-console/pkg/di"
)

const browseHelp = `commands:
  n             next page
  p             previous page
  g <page>      go to page
  l <size>      change page size
  s <query>     search (blank clears)
  r             reload the current page
  q             quit`

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <entity>",
		Short: "Page through an entity interactively",
		Long:  "Reads paging commands from stdin and redraws the grid after each one.\n\n" + browseHelp,
		Args:  cobra.ExactArgs(1),
		RunE: a.with(func(cmd *cobra.Command, args []string, c *di.Container) error {
			v, err := lookupView(c, args[0])
			if err != nil {
				return err
			}
			b := &browser{view: v, out: cmd.OutOrStdout()}
			if err := v.Load(cmd.Context()); err != nil {
				b.fail(err)
			}
			return b.run(cmd, cmd.InOrStdin())
		}),
	}
}

type browser struct {
	view console.View
	out  io.Writer
}

func (b *browser) run(cmd *cobra.Command, in io.Reader) error {
	if err := b.view.Render(b.out); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(b.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(b.out)
			return sc.Err()
		}
		quit, err := b.exec(cmd, strings.TrimSpace(sc.Text()))
		if err != nil {
			b.fail(err)
		}
		if quit {
			return nil
		}
		if err := b.view.Render(b.out); err != nil {
			return err
		}
	}
}

func (b *browser) exec(cmd *cobra.Command, line string) (quit bool, err error) {
	ctx := cmd.Context()
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	st := b.view.State()

	switch verb {
	case "", "r":
		return false, b.view.Reload(ctx)
	case "q", "quit", "exit":
		return true, nil
	case "n":
		return false, b.view.Paginate(ctx, st.Page+1, st.PageSize)
	case "p":
		return false, b.view.Paginate(ctx, max(1, st.Page-1), st.PageSize)
	case "g":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("g needs a page number")
		}
		return false, b.view.Paginate(ctx, n, st.PageSize)
	case "l":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("l needs a page size")
		}
		return false, b.view.Paginate(ctx, st.Page, n)
	case "s":
		b.view.Search(ctx, arg)
		return false, nil
	case "h", "help", "?":
		fmt.Fprintln(b.out, browseHelp)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (h for help)", verb)
	}
}

func (b *browser) fail(err error) {
	fmt.Fprintln(b.out, "!", userError(err))
}
