package main

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

func main() {
	var serverURL string

	root := &cobra.Command{
		Use:   "genie",
		Short: "Generate PostgreSQL from plain-language database descriptions",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("QUERYGENIE_SERVER", "http://localhost:8080"), "QueryGenie server URL")

	var name string
	signup := &cobra.Command{
		Use:   "signup <email> <password>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			out, err := newClient(serverURL).SignUp(args[0], args[1], name)
			if err != nil {
				return err
			}
			fmt.Println(out.Message)
			return nil
		},
	}
	signup.Flags().StringVar(&name, "name", "", "display name")

	login := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in and cache the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			out, err := newClient(serverURL).SignIn(args[0], args[1])
			if err != nil {
				return err
			}
			if err := writeToken(out.Token); err != nil {
				return err
			}
			fmt.Printf("signed in as %s\n", out.User.Email)
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the cached token",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := newClient(serverURL).SignOut(); err != nil {
				return err
			}
			return removeToken()
		},
	}

	var copyResult bool
	generate := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate SQL from a database description",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			out, err := newClient(serverURL).Generate(args[0])
			if err != nil {
				return err
			}
			fmt.Println(out.GeneratedSql)
			if out.Notice != "" {
				fmt.Fprintf(os.Stderr, "notice: %s\n", out.Notice)
			}
			if copyResult {
				// The SQL is already printed; a clipboard failure does not
				// fail the command.
				if err := clipboard.WriteAll(out.GeneratedSql); err != nil {
					fmt.Fprintf(os.Stderr, "notice: could not copy to clipboard: %v\n", err)
				} else {
					fmt.Fprintln(os.Stderr, "copied to clipboard")
				}
			}
			return nil
		},
	}
	generate.Flags().BoolVar(&copyResult, "copy", false, "copy the generated SQL to the clipboard")

	var search string
	history := &cobra.Command{
		Use:   "history",
		Short: "List your past generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			out, err := newClient(serverURL).History(search)
			if err != nil {
				return err
			}
			if len(out.Queries) == 0 {
				fmt.Println("no queries found")
				return nil
			}
			for _, q := range out.Queries {
				fmt.Printf("[%s] %s\n%s\n\n", q.CreatedAt.Format("2006-01-02 15:04"), q.Prompt, q.Response)
			}
			return nil
		},
	}
	history.Flags().StringVar(&search, "search", "", "case-insensitive substring filter on prompts")

	root.AddCommand(signup, login, logout, generate, history)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
