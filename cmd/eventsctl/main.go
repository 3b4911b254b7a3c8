// eventsctl is a terminal client for the events API. It drives the same
// view models as the web frontend and keeps the signed-in viewer in a
// session file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/ical"
	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
	"github.com/Shivanand-hulikatti/eventhub/internal/view"
)

const usage = `usage: eventsctl [-config file] [-env file] [-v] <command> [args]

commands:
  login [-email E] [-password P]   sign in
  logout                           sign out
  whoami                           show the signed-in viewer
  config [-o file]                 print the effective config, or save it
  list                             list events
  show ID                          show one event
  subscribe ID                     subscribe, or cancel an existing subscription
  delete [-yes] ID                 delete an event after confirmation
  create -title T -date D -time H -location L [-description X] -capacity N
  edit [flags as create] ID        change an event; omitted flags keep their value
  ics [-o file] ID                 export an event as iCalendar
  url [ID]                         web address of an event, or of the create page
`

// errUsage makes main exit with status 2.
var errUsage = errors.New("usage")

func main() {
	fs := flag.NewFlagSet("eventsctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "path to a YAML config file")
	envFile := fs.String("env", ".env", "path to a .env file")
	verbose := fs.Bool("v", false, "log requests to stderr")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, *configPath, *envFile, *verbose, fs.Args())
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "eventsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envFile string, verbose bool, args []string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level := "error"
	if verbose {
		level = "debug"
	}
	logger := log.NewWriter(os.Stderr, level)
	defer logger.Sync()

	authn, err := auth.NewDemoAuthenticator(cfg.Auth.SigningKey, cfg.Auth.TokenTTL, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	ac := auth.NewContext(auth.FileStore{Path: cfg.SessionFile}, authn, auth.WithLogger(logger))
	if err := ac.Init(); err != nil {
		logger.Warn("session file unreadable, signed out", "path", cfg.SessionFile, "err", err)
	}

	c := &cli{
		cfg:     cfg,
		auth:    ac,
		authn:   authn,
		nav:     &route.Latch{},
		notices: notify.New(nil),
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
		log:     logger,
	}
	c.client = api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.RequestTimeout),
		api.WithTokenSource(ac),
		api.WithLogger(logger),
	)
	defer c.flushNotices()
	return c.dispatch(ctx, args[0], args[1:])
}

type cli struct {
	cfg     *config.Config
	auth    *auth.Context
	authn   *auth.DemoAuthenticator
	client  *api.Client
	nav     *route.Latch
	notices *notify.Center
	out     io.Writer
	in      *bufio.Reader
	log     *log.Logger
}

func (c *cli) deps() view.Deps {
	return view.Deps{
		Events:  c.client,
		Viewers: c.auth,
		Nav:     c.nav,
		Notices: c.notices,
		Log:     c.log,
	}
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout()
	case "whoami":
		return c.whoami()
	case "config":
		return c.config(args)
	case "list":
		return c.list(ctx)
	case "show":
		return c.show(ctx, args)
	case "subscribe":
		return c.subscribe(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "create":
		return c.create(ctx, args)
	case "edit":
		return c.edit(ctx, args)
	case "ics":
		return c.ics(ctx, args)
	case "url":
		return c.url(args)
	default:
		return errUsage
	}
}

// flushNotices prints the success notices the view models posted. Error
// notices surface as the command's error instead.
func (c *cli) flushNotices() {
	for _, n := range c.notices.Active() {
		if n.Severity == notify.Success {
			fmt.Fprintln(c.out, n.Message)
		}
	}
}

// needsLogin turns a navigation to the login page into an error.
func (c *cli) needsLogin() error {
	if target, ok := c.nav.Take(); ok && strings.HasPrefix(target, route.Login) {
		return errors.New("not signed in; run eventsctl login first")
	}
	return nil
}

func failed(f *view.Failure) error {
	if f == nil {
		return nil
	}
	return errors.New(f.Message)
}

func oneID(fs *flag.FlagSet, args []string) (model.ID, error) {
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", errUsage
	}
	return model.ID(strings.TrimSpace(fs.Arg(0))), nil
}

func (c *cli) prompt(label string) string {
	fmt.Fprint(c.out, label)
	line, _ := c.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// ─── Commands ─────────────────────────────────────────────────────────────────

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	if *email == "" {
		*email = c.prompt("Email: ")
	}
	if *password == "" {
		*password = c.prompt("Password: ")
	}

	l := view.NewLogin(c.deps(), c.auth, "")
	l.Submit(ctx, model.Credentials{Email: *email, Password: *password})
	return failed(l.State().Err)
}

func (c *cli) logout() error {
	if err := c.auth.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func (c *cli) whoami() error {
	sess, ok := c.auth.Session()
	if !ok {
		return errors.New("not signed in")
	}
	v := sess.Viewer
	claims, err := c.authn.Verify(v.Token)
	if err != nil {
		return fmt.Errorf("session token rejected (%v); run eventsctl login again", err)
	}
	if claims.Subject != "" && !strings.EqualFold(claims.Subject, v.Email) {
		return errors.New("session token belongs to another account; run eventsctl login again")
	}
	if v.Name != "" {
		fmt.Fprintf(c.out, "%s <%s>\n", v.Name, v.Email)
	} else {
		fmt.Fprintln(c.out, v.Email)
	}
	if claims.ExpiresAt != nil {
		fmt.Fprintf(c.out, "session expires %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// config prints the effective configuration as YAML, or saves it to a
// file that later runs can pass to -config.
func (c *cli) config(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	outPath := fs.String("o", "", "save to file instead of printing")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	if *outPath != "" {
		if err := config.Save(*outPath, c.cfg); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Saved %s\n", *outPath)
		return nil
	}
	b, err := yaml.Marshal(c.cfg)
	if err != nil {
		return err
	}
	_, err = c.out.Write(b)
	return err
}

func (c *cli) list(ctx context.Context) error {
	l := view.NewList(c.deps())
	l.Load(ctx)
	st := l.State()
	if st.Err != nil {
		return failed(st.Err)
	}
	if len(st.Events) == 0 {
		fmt.Fprintln(c.out, "No events yet.")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tLOCATION\tSEATS")
	for _, e := range st.Events {
		seats := fmt.Sprintf("%d/%d", e.SubscribedCount, e.Capacity)
		if e.IsFull() {
			seats += " full"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date.Format("2006-01-02 15:04"), e.Title, e.Location, seats)
	}
	return tw.Flush()
}

// loadDetail opens the detail view of the event named in args.
func (c *cli) loadDetail(ctx context.Context, fs *flag.FlagSet, args []string) (*view.Detail, error) {
	id, err := oneID(fs, args)
	if err != nil {
		return nil, err
	}
	d := view.NewDetail(c.deps())
	d.Load(ctx, id)
	if st := d.State(); st.Err != nil {
		return nil, failed(st.Err)
	}
	return d, nil
}

func (c *cli) show(ctx context.Context, args []string) error {
	d, err := c.loadDetail(ctx, flag.NewFlagSet("show", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	st := d.State()
	e := st.Event
	fmt.Fprintln(c.out, e.Title)
	fmt.Fprintf(c.out, "  when:  %s\n", e.Date.Format("Mon 02 Jan 2006, 15:04"))
	fmt.Fprintf(c.out, "  where: %s\n", e.Location)
	fmt.Fprintf(c.out, "  seats: %d of %d taken\n", e.SubscribedCount, e.Capacity)
	if e.Description != "" {
		fmt.Fprintf(c.out, "\n%s\n", e.Description)
	}

	if _, ok := c.auth.CurrentViewer(); ok {
		switch st.SubscribeAction() {
		case view.ActionUnsubscribe:
			fmt.Fprintln(c.out, "\nYou are subscribed.")
		case view.ActionNone:
			fmt.Fprintln(c.out, "\nThis event is fully booked.")
		}
	}
	return nil
}

func (c *cli) subscribe(ctx context.Context, args []string) error {
	d, err := c.loadDetail(ctx, flag.NewFlagSet("subscribe", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if d.State().SubscribeAction() == view.ActionNone {
		if _, ok := c.auth.CurrentViewer(); ok {
			return errors.New("this event is fully booked")
		}
	}
	d.ToggleSubscription(ctx)
	if err := c.needsLogin(); err != nil {
		return err
	}
	return failed(d.State().Err)
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	d, err := c.loadDetail(ctx, fs, args)
	if err != nil {
		return err
	}

	d.RequestDelete()
	if err := c.needsLogin(); err != nil {
		return err
	}
	st := d.State()
	if !st.DeleteConfirmationOpen() {
		return errors.New("the event cannot be deleted right now")
	}
	if !*yes {
		answer := c.prompt(fmt.Sprintf("Delete %q? This cannot be undone. [y/N] ", st.Event.Title))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			d.CancelDelete()
			fmt.Fprintln(c.out, "Kept.")
			return nil
		}
	}
	d.ConfirmDelete(ctx)
	return failed(d.State().Err)
}

// formFlags binds the event form fields to fs.
func formFlags(fs *flag.FlagSet) *view.FormFields {
	f := &view.FormFields{}
	fs.StringVar(&f.Title, "title", "", "event title")
	fs.StringVar(&f.Date, "date", "", "date as YYYY-MM-DD")
	fs.StringVar(&f.Time, "time", "", "start time as HH:MM")
	fs.StringVar(&f.Location, "location", "", "where it happens")
	fs.StringVar(&f.Description, "description", "", "free text")
	fs.StringVar(&f.Capacity, "capacity", "", "number of seats")
	return f
}

func (c *cli) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fields := formFlags(fs)
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	f := view.NewCreateForm(c.deps())
	f.RedirectDelay = 0
	f.SetFields(*fields)
	return c.submit(ctx, f)
}

func (c *cli) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	given := formFlags(fs)
	id, err := oneID(fs, args)
	if err != nil {
		return err
	}

	f := view.NewEditForm(c.deps(), id)
	f.RedirectDelay = 0
	f.Load(ctx)
	st := f.State()
	if st.Err != nil {
		return failed(st.Err)
	}

	fields := st.Fields
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			fields.Title = given.Title
		case "date":
			fields.Date = given.Date
		case "time":
			fields.Time = given.Time
		case "location":
			fields.Location = given.Location
		case "description":
			fields.Description = given.Description
		case "capacity":
			fields.Capacity = given.Capacity
		}
	})
	f.SetFields(fields)
	return c.submit(ctx, f)
}

func (c *cli) submit(ctx context.Context, f *view.Form) error {
	f.Submit(ctx)
	if target, ok := c.nav.Take(); ok {
		if strings.HasPrefix(target, route.Login) {
			return errors.New("not signed in; run eventsctl login first")
		}
		// A create answered without a body lands on the list; there is no
		// id to print then.
		if id := strings.TrimPrefix(target, route.Events+"/"); id != target {
			fmt.Fprintln(c.out, id)
		}
		return nil
	}
	return failed(f.State().Err)
}

func (c *cli) ics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ics", flag.ContinueOnError)
	outPath := fs.String("o", "", "write to file instead of stdout")
	id, err := oneID(fs, args)
	if err != nil {
		return err
	}

	e, err := c.client.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("event %s not found", id)
		}
		return err
	}
	doc := ical.Render(*e, c.cfg.PublicURL)
	if *outPath == "" {
		_, err := io.WriteString(c.out, doc)
		return err
	}
	return os.WriteFile(*outPath, []byte(doc), 0o644)
}

// url prints where the web frontend shows an event, or where new events
// are created. The create page goes through login for anonymous users.
func (c *cli) url(args []string) error {
	fs := flag.NewFlagSet("url", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() > 1 {
		return errUsage
	}
	l := view.NewList(c.deps())
	if id := strings.TrimSpace(fs.Arg(0)); id != "" {
		l.Open(model.ID(id))
	} else {
		l.Create()
	}
	target, ok := c.nav.Take()
	if !ok {
		return errUsage
	}
	fmt.Fprintln(c.out, strings.TrimRight(c.cfg.PublicURL, "/")+target)
	return nil
}
