package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/cli/config"
	"github.com/justapithecus/packetstream/cli/reader"
	"github.com/justapithecus/packetstream/cli/render"
	"github.com/justapithecus/packetstream/cli/tui"
)

// LayoutCommand returns the layout command with subcommands.
func LayoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "List, show and validate packet layouts",
		Subcommands: []*cli.Command{
			layoutListCommand(),
			layoutShowCommand(),
			layoutValidateCommand(),
		},
	}
}

// LayoutSummary is one entry of layout list.
type LayoutSummary struct {
	Name      string `json:"name"`
	Fields    int    `json:"fields"`
	FixedSize *int   `json:"fixed_size"`
	Nested    bool   `json:"nested"`
}

// LayoutValidation is the result of layout validate.
type LayoutValidation struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func layoutListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List built-in and configured layouts",
		Flags:  append(ReadOnlyFlags(), ConfigFlag),
		Action: layoutListAction,
	}
}

func layoutListAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for layout list command", 1)
	}
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var out []LayoutSummary
	for _, name := range cfg.LayoutNames() {
		l, err := cfg.Layout(name)
		if err != nil {
			// layout validate reports why
			out = append(out, LayoutSummary{Name: name})
			continue
		}
		resp := reader.Layout(name, l, nil)
		d, err := cfg.Decoding(name)
		out = append(out, LayoutSummary{
			Name:      name,
			Fields:    len(resp.Fields),
			FixedSize: resp.FixedSize,
			Nested:    err == nil && d.Assembler != nil,
		})
	}
	return r.Render(out)
}

func layoutShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the fields of a layout",
		ArgsUsage: "[name]",
		Flags:     append(ReadOnlyFlags(), ConfigFlag),
		Action:    layoutShowAction,
	}
}

func layoutShowAction(c *cli.Context) error {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return err
	}
	d, err := cfg.Decoding(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	resp := reader.Layout(d.Name, d.Outer, d.Assembler)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectLayout, resp)
	}
	return r.Render(resp)
}

func layoutValidateCommand() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Build every layout in a config file and report errors",
		Flags:  append(ReadOnlyFlags(), ConfigFlag),
		Action: layoutValidateAction,
	}
}

func layoutValidateAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for layout validate command", 1)
	}
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var out []LayoutValidation
	failed := 0
	for _, name := range cfg.LayoutNames() {
		v := LayoutValidation{Name: name, Valid: true}
		if _, err := cfg.Layout(name); err != nil {
			v.Valid = false
			v.Error = err.Error()
			failed++
		}
		out = append(out, v)
	}
	// The default decoding checks the frame section against its layout.
	v := LayoutValidation{Name: "frame", Valid: true}
	if _, err := cfg.Decoding(""); err != nil {
		v.Valid = false
		v.Error = err.Error()
		failed++
	}
	out = append(out, v)

	if err := r.Render(out); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
