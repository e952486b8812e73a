package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/sidenav/auth"
	"github.com/jonwraymond/sidenav/internal/coerce"
	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/reqctx"
)

type selectOptions struct {
	url      string
	lang     string
	roles    []string
	loggedIn string
	device   string
	at       string
	content  []int
	types    []string
	asJSON   bool
}

func newSelectCmd(root *rootOptions) *cobra.Command {
	opts := &selectOptions{}
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Show which profile a synthetic request would get",
		Example: `  sidenav select --url /docs/start --lang fr --role editor
  sidenav select --device mobile --at 2026-03-02T09:30:00Z --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSelect(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.url, "url", "", "current page URL")
	fs.StringVar(&opts.lang, "lang", "", "locale (defaults to site.default_locale)")
	fs.StringSliceVar(&opts.roles, "role", nil, "viewer role (repeatable); implies logged in")
	fs.StringVar(&opts.loggedIn, "logged-in", "", "true, false or empty for unknown")
	fs.StringVar(&opts.device, "device", "desktop", "desktop or mobile")
	fs.StringVar(&opts.at, "at", "", "evaluation time, RFC 3339 (defaults to now)")
	fs.IntSliceVar(&opts.content, "content", nil, "viewed content ids")
	fs.StringSliceVar(&opts.types, "type", nil, "viewed content types")
	fs.BoolVar(&opts.asJSON, "json", false, "print the explanation as JSON")
	return cmd
}

func runSelect(ctx context.Context, root *rootOptions, opts *selectOptions, out io.Writer) error {
	a, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	res, err := opts.resolver(a)
	if err != nil {
		return err
	}
	exp, err := a.selector.Explain(ctx, res)
	if err != nil {
		return err
	}
	rc := res.Resolve(ctx)
	exp.Context = &rc

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	}
	return printExplanation(out, exp)
}

func (o *selectOptions) resolver(a *app) (*reqctx.Resolver, error) {
	now := time.Now
	if o.at != "" {
		at, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return nil, fmt.Errorf("--at: %w", err)
		}
		now = func() time.Time { return at }
	}
	device := reqctx.Device(o.device)
	if !device.Valid() {
		return nil, fmt.Errorf("--device: unknown device %q", o.device)
	}
	identity, err := o.identity()
	if err != nil {
		return nil, err
	}

	lang := o.lang
	if lang == "" {
		lang = a.cfg.Site.DefaultLocale
	}
	url := o.url
	if url != "" && a.cfg.Site.BaseURL != "" {
		url = reqctx.NormalizeURL(url, a.cfg.Site.BaseURL)
	}
	return reqctx.New(
		reqctx.WithLocale(lang),
		reqctx.WithURL(url),
		reqctx.WithClock(now),
		reqctx.WithLocation(a.loc),
		reqctx.WithDevice(device),
		reqctx.WithIdentitySource(identity),
		reqctx.WithContentSource(reqctx.ContentSourceFunc(func(context.Context) (reqctx.Content, error) {
			return reqctx.Content{IDs: o.content, Types: o.types}, nil
		})),
	), nil
}

func (o *selectOptions) identity() (reqctx.IdentitySource, error) {
	loggedIn, known := len(o.roles) > 0, len(o.roles) > 0
	if o.loggedIn != "" {
		v, ok := coerce.Bool(o.loggedIn)
		if !ok {
			return nil, fmt.Errorf("--logged-in: %q is not a boolean", o.loggedIn)
		}
		loggedIn, known = v, true
	}
	roles := make([]string, 0, len(o.roles))
	for _, r := range o.roles {
		if k := coerce.Key(r); k != "" {
			roles = append(roles, k)
		}
	}
	return reqctx.IdentitySourceFunc(func(context.Context) (*auth.Identity, error) {
		switch {
		case !known:
			return nil, auth.ErrMissingCredentials
		case !loggedIn:
			return auth.AnonymousIdentity(), nil
		default:
			return &auth.Identity{Subject: "cli", Method: auth.MethodJWT, Roles: roles}, nil
		}
	}), nil
}

func printExplanation(out io.Writer, exp profile.Explanation) error {
	sel := exp.Selection
	fallback := ""
	if sel.IsFallback {
		fallback = " (fallback)"
	}
	if _, err := fmt.Fprintf(out, "selected: %s%s\n", sel.ID, fallback); err != nil {
		return err
	}
	if len(exp.Evaluations) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nID\tENABLED\tMATCHED\tPRIORITY\tSPECIFICITY\tWINNER")
	for _, ev := range exp.Evaluations {
		fmt.Fprintf(tw, "%s\t%t\t%t\t%d\t%d\t%s\n",
			ev.ID, ev.Enabled, ev.Matched, ev.Priority, ev.Specificity, mark(ev.Winner))
	}
	return tw.Flush()
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}
