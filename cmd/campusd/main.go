package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/config"
	"github.com/matheus3301/campusmsg/internal/daemon"
	"github.com/matheus3301/campusmsg/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if args := flag.Args(); len(args) > 0 {
		if args[0] != "init" {
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
			os.Exit(1)
		}
		if err := initSession(sessionName, args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := session.EnsureDir(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{SessionName: sessionName, Debug: *debugFlag}),
	)

	app.Run()
}

// initSession writes the session config.toml, keeping values already set.
func initSession(name string, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	baseURL := fs.String("base-url", "", "backend base URL, e.g. https://campus.example.edu/api")
	user := fs.String("user", "", "current user key, e.g. student_42")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := session.SessionConfigPath(name)
	cfg, err := config.LoadSession(path, "")
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.APIBaseURL = *baseURL
	}
	if *user != "" {
		ref, err := chat.ParseKey(*user)
		if err != nil {
			return err
		}
		cfg.UserType, cfg.UserID = ref.Type, ref.ID
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := session.EnsureDir(name); err != nil {
		return err
	}
	if err := config.SaveSession(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Session %q configured at %s\n", name, path)
	return nil
}
