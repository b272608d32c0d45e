// Command camctl is a small command-line client for the camera management
// API.  A successful login is remembered in a local session file until
// logout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/iliyamo/camera-management/internal/client"
	"github.com/iliyamo/camera-management/internal/utils"
)

const usage = `usage: camctl [-server URL] [-session FILE] <command> [args]

commands:
  login <username> [-password P]
  logout
  whoami
  signup <username> [-password P] [-role Admin|Operator]
  cameras list
  cameras get <id>
  cameras create -name N -url U -location L [-status S]
  cameras update <id> [-name N] [-url U] [-location L] [-status S]
  cameras delete <id>
`

type app struct {
	server  string
	session client.SessionStore
	out     io.Writer
	stdin   *bufio.Reader
}

func main() {
	server := flag.String("server", envOr("CAMCTL_SERVER", ""), "API base URL (default from session or http://localhost:5000)")
	sessionPath := flag.String("session", client.DefaultSessionPath(), "session file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	a := &app{server: *server, session: client.SessionStore{Path: *sessionPath}, out: os.Stdout, stdin: bufio.NewReader(os.Stdin)}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.run(ctx, flag.Args()); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.session.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "whoami":
		c, err := a.authed()
		if err != nil {
			return err
		}
		u, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%s) %s\n", u.Username, u.Role, u.ID)
		return nil
	case "signup":
		return a.signup(ctx, rest)
	case "cameras":
		return a.cameras(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) baseURL(saved string) string {
	switch {
	case a.server != "":
		return a.server
	case saved != "":
		return saved
	default:
		return "http://localhost:5000"
	}
}

// authed returns a client carrying the saved token.
func (a *app) authed() (*client.Client, error) {
	s, err := a.session.Load()
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			return nil, errors.New("not logged in, run: camctl login <username>")
		}
		return nil, err
	}
	return client.New(a.baseURL(s.Server), s.Token), nil
}

func (a *app) password(given, label string) (string, error) {
	if given != "" {
		return given, nil
	}
	pw, err := utils.PromptPassword(os.Stdin, os.Stderr, label)
	if errors.Is(err, utils.ErrNoTerminal) {
		return utils.PromptLine(a.stdin, os.Stderr, label)
	}
	return pw, err
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	pw := fs.String("password", "", "password (prompted when empty)")
	username, err := parseWithArg(fs, args, "username")
	if err != nil {
		return err
	}
	password, err := a.password(*pw, "Password: ")
	if err != nil {
		return err
	}

	base := a.baseURL("")
	res, err := client.New(base, "").Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.session.Save(client.Session{Server: base, Token: res.Token, User: res.User}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s as %s (%s)\n", res.Message, res.User.Username, res.User.Role)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	pw := fs.String("password", "", "password for the new user (prompted when empty)")
	role := fs.String("role", "", "Admin or Operator (default Operator)")
	username, err := parseWithArg(fs, args, "username")
	if err != nil {
		return err
	}
	c, err := a.authed()
	if err != nil {
		return err
	}
	password, err := a.password(*pw, "Password for "+username+": ")
	if err != nil {
		return err
	}
	res, err := c.Signup(ctx, username, password, *role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s (%s) %s\n", res.Message, res.User.Username, res.User.Role, res.User.ID)
	return nil
}

func (a *app) cameras(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("cameras: missing subcommand")
	}
	c, err := a.authed()
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("cameras "+sub, flag.ContinueOnError)
	var in client.CameraInput
	fs.StringVar(&in.Name, "name", "", "camera name")
	fs.StringVar(&in.StreamURL, "url", "", "stream URL")
	fs.StringVar(&in.Location, "location", "", "location")
	fs.StringVar(&in.Status, "status", "", "status")

	switch sub {
	case "list":
		cams, err := c.ListCameras(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSTATUS\tSTREAM")
		for _, cam := range cams {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cam.ID, cam.Name, cam.Location, cam.Status, cam.StreamURL)
		}
		return tw.Flush()
	case "get":
		id, err := parseWithArg(fs, rest, "id")
		if err != nil {
			return err
		}
		cam, err := c.GetCamera(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(cam)
	case "create":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cam, err := c.CreateCamera(ctx, in)
		if err != nil {
			return err
		}
		return a.printJSON(cam)
	case "update":
		id, err := parseWithArg(fs, rest, "id")
		if err != nil {
			return err
		}
		cam, err := c.UpdateCamera(ctx, id, in)
		if err != nil {
			return err
		}
		return a.printJSON(cam)
	case "delete":
		id, err := parseWithArg(fs, rest, "id")
		if err != nil {
			return err
		}
		if err := c.DeleteCamera(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Camera deleted successfully")
		return nil
	default:
		return fmt.Errorf("cameras: unknown subcommand %q", sub)
	}
}

// parseWithArg takes one leading positional argument followed by flags.
func parseWithArg(fs *flag.FlagSet, args []string, name string) (string, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", fmt.Errorf("%s: missing <%s>", fs.Name(), name)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", err
	}
	return args[0], nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
