package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nqm/internal/model"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Input     string
	InFormat  string
	OutFormat string
	Output    string
}

const maxSetBytes = 64 << 20

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a named query set between JSON and YAML",
		Long: `Read a named query set from a file or URL and write it as JSON or YAML.

Example:
  nqm convert --input queries.json --out-format yaml --output queries.yaml
  nqm convert --input https://example.org/queries.yaml --out-format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file or http(s) URL (required)")
	cmd.Flags().StringVar(&opts.InFormat, "in-format", string(model.FormatAuto), "input format (auto|json|yaml)")
	cmd.Flags().StringVar(&opts.OutFormat, "out-format", string(model.FormatYAML), "output format (json|yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runConvert(ctx context.Context, opts *ConvertOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Input == "" {
		return NewExitError(ExitUsage, `required flag "input" not set`)
	}
	in, err := model.ParseSetFormat(opts.InFormat)
	if err != nil {
		return WrapExitError(ExitUsage, "invalid --in-format", err)
	}
	out, err := model.ParseSetFormat(opts.OutFormat)
	if err != nil || out == model.FormatAuto {
		return NewExitError(ExitUsage, fmt.Sprintf("invalid --out-format %q: must be json or yaml", opts.OutFormat))
	}

	set, err := readSet(ctx, opts.Input, in)
	if err != nil {
		return WrapExitError(ExitImport, "failed to read query set", err)
	}
	opts.log().Debug("query set read", "input", opts.Input, "queries", len(set.Queries))

	if opts.Output != "" {
		if err := model.SaveSet(set, opts.Output, out); err != nil {
			return WrapExitError(ExitImport, "failed to write query set", err)
		}
		return nil
	}
	data, err := model.EncodeSet(set, out)
	if err != nil {
		return WrapExitError(ExitImport, "failed to encode query set", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// readSet loads a set from a path or an http(s) URL.
func readSet(ctx context.Context, input string, format model.SetFormat) (*model.NamedQuerySet, error) {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return model.LoadSet(input, format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", input, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", input, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSetBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", input, err)
	}
	if format == model.FormatAuto {
		format = model.FormatForPath(req.URL.Path)
	}
	return model.DecodeSet(data, format)
}

// writeSet writes set to path, or as YAML to w when path is empty.
func writeSet(w io.Writer, set *model.NamedQuerySet, path string) error {
	if path != "" {
		return model.SaveSet(set, path, model.FormatAuto)
	}
	data, err := model.EncodeSet(set, model.FormatYAML)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

