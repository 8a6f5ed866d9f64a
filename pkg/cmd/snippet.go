package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
	"github.com/yeisme/snipvault/pkg/internal/types"
)

var (
	snippetCmd = &cobra.Command{
		Use:     "snippet",
		Short:   "manage stored snippets",
		Aliases: []string{"snippets", "s"},
	}

	listStatus  string
	listPage    int
	listPerPage int

	snippetListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list snippets, newest first",
		Aliases: []string{"ls", "l"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			page, err := svc.Paginate(ctx, types.ListSnippetsQuery{PerPage: listPerPage, Page: listPage, Status: listStatus})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tNAME\tTYPE\tSTATUS\tPRIORITY\tUPDATED")

			for _, s := range page.Data {
				m := s.Meta
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", s.FileName, m.Name(), m.Type(), m.Status(), m.Priority(), m.UpdatedAt())
			}

			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d total\n", page.CurrentPage, max(page.LastPage, 1), page.Total)

			return nil
		},
	}

	showFormat string

	snippetShowCmd = &cobra.Command{
		Use:   "show <file>",
		Short: "print a snippet's code, or the whole record with --format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			rec, err := svc.Find(ctx, args[0])
			if err != nil {
				return err
			}

			if showFormat == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rec.Code)
				return err
			}

			return write(cmd.OutOrStdout(), showFormat, rec)
		},
	}

	metaFlags  metaOptions
	codeSource string

	snippetCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "create a draft snippet from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(cmd.InOrStdin(), codeSource)
			if err != nil {
				return err
			}

			meta, err := metaFlags.build(snippet.NewMeta(snippet.KeyStatus, snippet.StatusDraft, snippet.KeyType, snippet.TypePHP))
			if err != nil {
				return err
			}

			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			saved, err := svc.Create(ctx, types.SaveSnippetRequest{Meta: meta, Code: code})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), saved.FileName)

			return nil
		},
	}

	snippetUpdateCmd = &cobra.Command{
		Use:   "update <file>",
		Short: "update a snippet; unset flags keep the stored values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			current, err := svc.Find(ctx, args[0])
			if err != nil {
				return err
			}

			code := current.Code
			if codeSource != "" {
				if code, err = readCode(cmd.InOrStdin(), codeSource); err != nil {
					return err
				}
			}

			meta, err := metaFlags.build(current.Meta.Clone())
			if err != nil {
				return err
			}

			saved, err := svc.Update(ctx, args[0], types.SaveSnippetRequest{Meta: meta, Code: code})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", saved.FileName, saved.Status)

			return nil
		},
	}

	snippetStatusCmd = &cobra.Command{
		Use:       "status <file> <published|draft>",
		Short:     "publish or unpublish a snippet",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{snippet.StatusPublished, snippet.StatusDraft},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			saved, err := svc.UpdateStatus(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", saved.FileName, saved.Status)

			return nil
		},
	}

	snippetRemoveCmd = &cobra.Command{
		Use:     "remove <file>...",
		Short:   "delete snippets",
		Aliases: []string{"rm"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			var errs []error

			for _, id := range args {
				if err := svc.Delete(ctx, id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}

				fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			}

			return errors.Join(errs...)
		},
	}

	exportFormat string
	exportOut    string

	snippetExportCmd = &cobra.Command{
		Use:   "export",
		Short: "dump every snippet with its metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			records, err := ctxPkg.GetManager(ctx).Repository().List(ctx, repository.ListOptions{Status: listStatus})
			if err != nil {
				return err
			}

			out := make([]types.SnippetDetail, 0, len(records))
			for _, rec := range records {
				out = append(out, types.SnippetDetail{FileName: rec.ID, Meta: rec.Meta, Code: rec.DisplayCode()})
			}

			w := cmd.OutOrStdout()

			if exportOut != "" && exportOut != "-" {
				f, err := os.Create(exportOut)
				if err != nil {
					return err
				}
				defer f.Close()

				w = f
			}

			return write(w, exportFormat, out)
		},
	}
)

// metaOptions 命令行中的元数据参数.
type metaOptions struct {
	name        string
	typ         string
	description string
	tags        string
	priority    int
	group       string
	extra       []string
}

func (o *metaOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "snippet name")
	f.StringVar(&o.typ, "type", "", "snippet type, e.g. PHP, css, js")
	f.StringVar(&o.description, "description", "", "description")
	f.StringVar(&o.tags, "tags", "", "comma separated tags")
	f.IntVar(&o.priority, "priority", 0, "execution priority, lower runs first")
	f.StringVar(&o.group, "group", "", "group")
	f.StringArrayVar(&o.extra, "meta", nil, "additional key=value metadata, repeatable")
}

// build 把显式给出的参数写入 base.
func (o *metaOptions) build(base *snippet.Meta) (*snippet.Meta, error) {
	set := func(key, v string) {
		if v != "" {
			base.Set(key, v)
		}
	}

	set(snippet.KeyName, o.name)
	set(snippet.KeyType, o.typ)
	set(snippet.KeyDescription, o.description)
	set(snippet.KeyTags, o.tags)
	set(snippet.KeyGroup, o.group)

	if o.priority != 0 {
		base.Set(snippet.KeyPriority, fmt.Sprint(o.priority))
	}

	for _, kv := range o.extra {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --meta %q, want key=value", kv)
		}

		base.Set(strings.TrimSpace(k), v)
	}

	return base, nil
}

// readCode 从文件读取代码，"-" 表示标准输入.
func readCode(stdin io.Reader, src string) (string, error) {
	var (
		b   []byte
		err error
	)

	switch src {
	case "":
		return "", errors.New("--file is required (use - for stdin)")
	case "-":
		b, err = io.ReadAll(stdin)
	default:
		b, err = os.ReadFile(src)
	}

	if err != nil {
		return "", err
	}

	return string(b), nil
}

// registerSnippetCommands 注册片段相关命令.
func registerSnippetCommands() {
	rootCmd.AddCommand(snippetCmd)

	snippetListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (published or draft)")
	snippetListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	snippetListCmd.Flags().IntVar(&listPerPage, "per-page", 10, "snippets per page")

	snippetShowCmd.Flags().StringVarP(&showFormat, "format", "o", "", "print the full record as json or yaml")

	metaFlags.bind(snippetCreateCmd)
	snippetCreateCmd.Flags().StringVarP(&codeSource, "file", "f", "", "code file, - for stdin")
	_ = snippetCreateCmd.MarkFlagRequired("name")

	metaFlags.bind(snippetUpdateCmd)
	snippetUpdateCmd.Flags().StringVarP(&codeSource, "file", "f", "", "replacement code file, - for stdin")

	snippetExportCmd.Flags().StringVarP(&exportFormat, "format", "o", formatYAML, "json or yaml")
	snippetExportCmd.Flags().StringVar(&exportOut, "out", "", "write to file instead of stdout")
	snippetExportCmd.Flags().StringVar(&listStatus, "status", "", "export only this status")

	snippetCmd.AddCommand(snippetListCmd, snippetShowCmd, snippetCreateCmd, snippetUpdateCmd,
		snippetStatusCmd, snippetRemoveCmd, snippetExportCmd)
}
