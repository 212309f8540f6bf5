package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/service"
	"go.uber.org/zap"
)

// ErrUsage reports a command line that cannot be run.
var ErrUsage = errors.New("usage error")

// CLI dispatches subcommands to a Backend.
type CLI struct {
	Backend  Backend
	Prompter *Prompter
	Out      io.Writer
	Log      *zap.Logger

	// Session, when set, is used for every ledger command and no login
	// prompt is shown.
	Session Session
}

type command struct {
	help string
	run  func(c *CLI, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register": {"register a new account", (*CLI).register},
	"add":      {"add an expense", (*CLI).add},
	"list":     {"list expenses", (*CLI).list},
	"update":   {"change the description or amount of an expense", (*CLI).update},
	"delete":   {"delete an expense", (*CLI).delete},
	"summary":  {"show the total, optionally for one month", (*CLI).summary},
	"export":   {"export expenses to a CSV file", (*CLI).export},
}

// Run executes the subcommand named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if len(args) == 0 {
		c.usage()
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	switch args[0] {
	case "help", "-h", "--help":
		c.usage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	c.Log.Debug("running command", zap.String("command", args[0]))
	return cmd.run(c, ctx, args[1:])
}

func (c *CLI) usage() {
	fmt.Fprintln(c.Out, "Usage: ledger [options] <command> [command options]")
	fmt.Fprintln(c.Out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.Out, "  %-9s %s\n", name, commands[name].help)
	}
	fmt.Fprintln(c.Out, "\nRun 'ledger <command> -h' for the options of a command.")
}

// flags returns a FlagSet for a subcommand that reports into c.Out.
func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Out)
	return fs
}

// parse treats -h as success so the caller can stop quietly.
func parse(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return true, nil
}

// session returns the preset session or logs in with prompted credentials.
func (c *CLI) session(ctx context.Context) (Session, error) {
	if c.Session != nil {
		return c.Session, nil
	}
	username, password := c.Prompter.Credentials()
	s, err := c.Backend.Login(ctx, username, password)
	if err != nil {
		c.Log.Info("login failed", zap.String("user", username), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (c *CLI) register(ctx context.Context, args []string) error {
	if ok, err := parse(c.flags("register"), args); !ok {
		return err
	}
	if c.Session != nil {
		return fmt.Errorf("%w: register is not available in single-user mode", ErrUsage)
	}
	username, password, confirm := c.Prompter.NewAccount()
	if err := c.Backend.Register(ctx, username, password, confirm); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "User %s registered. You can now log in.\n", username)
	return nil
}

func (c *CLI) add(ctx context.Context, args []string) error {
	fs := c.flags("add")
	description := fs.String("description", "", "expense description")
	amount := fs.Float64("amount", 0, "expense amount, greater than 0")
	category := fs.String("category", models.DefaultCategory, "expense category")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	exp, err := s.Add(ctx, *description, *amount, *category)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Expense added for %s (ID: %d)\n", s.User(), exp.ID)
	return nil
}

func (c *CLI) list(ctx context.Context, args []string) error {
	if ok, err := parse(c.flags("list"), args); !ok {
		return err
	}
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	expenses, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(expenses) == 0 {
		fmt.Fprintf(c.Out, "No expenses recorded for %s.\n", s.User())
		return nil
	}
	return WriteTable(c.Out, expenses)
}

func (c *CLI) update(ctx context.Context, args []string) error {
	fs := c.flags("update")
	id := fs.Int64("id", 0, "id of the expense to change")
	description := fs.String("description", "", "new description")
	amount := fs.Float64("amount", 0, "new amount, greater than 0")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}

	var upd service.ExpenseUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "description":
			upd.Description = description
		case "amount":
			upd.Amount = amount
		}
	})

	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Update(ctx, *id, upd); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Expense %d updated\n", *id)
	return nil
}

func (c *CLI) delete(ctx context.Context, args []string) error {
	fs := c.flags("delete")
	id := fs.Int64("id", 0, "id of the expense to delete")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	exp, err := s.Delete(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Expense %d deleted (%s, %.2f)\n", exp.ID, exp.Description, exp.Amount)
	return nil
}

func (c *CLI) summary(ctx context.Context, args []string) error {
	fs := c.flags("summary")
	month := fs.Int("month", 0, "month of the current year (1-12), all months when omitted")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	total, err := s.Summarize(ctx, *month)
	if err != nil {
		return err
	}
	if *month != 0 {
		fmt.Fprintf(c.Out, "Total for %s in month %d: %.2f\n", s.User(), *month, total)
		return nil
	}
	fmt.Fprintf(c.Out, "Total for %s: %.2f\n", s.User(), total)
	return nil
}

func (c *CLI) export(ctx context.Context, args []string) error {
	fs := c.flags("export")
	filename := fs.String("filename", "export.csv", "target CSV file")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	n, err := s.Export(ctx, *filename)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Exported %d bytes for %s to %s\n", n, s.User(), *filename)
	return nil
}

// WriteTable renders expenses as aligned columns.
func WriteTable(w io.Writer, expenses models.Expenses) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT")
	for _, exp := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", exp.ID, exp.Date, exp.Category, exp.Description, exp.Amount)
	}
	return tw.Flush()
}
