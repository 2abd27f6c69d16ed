package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/validation"
)

type addParams struct {
	title    string
	username string
	url      string
	notes    string
	group    string
	secret   string
	fields   []string
	tags     []string
	prompt   bool
}

func (c *Cli) newAddCommand() *cobra.Command {
	var p addParams
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.prompt = !cmd.Flags().Changed("secret")
			return c.runAdd(cmd.Context(), p)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&p.title, "title", "", "Entry title")
	fs.StringVar(&p.username, "username", "", "User name")
	fs.StringVar(&p.url, "url", "", "URL")
	fs.StringVar(&p.notes, "notes", "", "Notes")
	fs.StringVar(&p.group, "group", "", "Group path, e.g. Work/Servers (created if missing)")
	fs.StringVar(&p.secret, "secret", "", "Entry password (prompted when omitted)")
	fs.StringArrayVar(&p.fields, "field", nil, "Custom field as name=value, repeatable")
	fs.StringSliceVar(&p.tags, "tag", nil, "Tags, repeatable or comma separated")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *Cli) runAdd(ctx context.Context, p addParams) error {
	custom := make(map[string]string, len(p.fields))
	for _, f := range p.fields {
		name, value, found := strings.Cut(f, "=")
		if !found {
			return fmt.Errorf("invalid field %q, expected name=value", f)
		}
		if err := validation.ValidateFieldName(name); err != nil {
			return err
		}
		custom[name] = value
	}

	if p.prompt {
		secret, err := c.io.ReadPassword("Entry password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		p.secret = secret
	}

	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	group, err := findGroup(db.Database, p.group, true)
	if err != nil {
		return err
	}

	mp := db.Meta.MemoryProtection
	e := models.NewEntry()
	e.SetString(models.FieldTitle, p.title, mp.IsProtected(models.FieldTitle))
	e.SetString(models.FieldUserName, p.username, mp.IsProtected(models.FieldUserName))
	e.SetString(models.FieldPassword, p.secret, mp.IsProtected(models.FieldPassword))
	e.SetString(models.FieldURL, p.url, mp.IsProtected(models.FieldURL))
	e.SetString(models.FieldNotes, p.notes, mp.IsProtected(models.FieldNotes))
	for name, value := range custom {
		e.SetString(name, value, false)
	}
	for _, t := range p.tags {
		e.AddTag(strings.TrimSpace(t))
	}

	group.AddEntry(e, true, true)
	group.Touch(true, false)
	db.Modified = true

	if err := c.save(ctx, db); err != nil {
		return err
	}

	c.io.Printf("%s Entry added successfully!\n", ok())
	c.io.Printf("ID:    %s\n", e.UUID)
	c.io.Printf("Title: %s\n", highlight(p.title))
	return nil
}

func (c *Cli) newEditCommand() *cobra.Command {
	var p addParams
	cmd := &cobra.Command{
		Use:   "edit <id|title>",
		Short: "Change fields of an entry, keeping the old version in its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := make(map[string]string)
			for flag, field := range map[string]string{
				"title":    models.FieldTitle,
				"username": models.FieldUserName,
				"url":      models.FieldURL,
				"notes":    models.FieldNotes,
				"secret":   models.FieldPassword,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetString(flag)
					changed[field] = v
				}
			}
			return c.runEdit(cmd.Context(), args[0], changed, p.fields, p.tags)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&p.title, "title", "", "New title")
	fs.StringVar(&p.username, "username", "", "New user name")
	fs.StringVar(&p.url, "url", "", "New URL")
	fs.StringVar(&p.notes, "notes", "", "New notes")
	fs.StringVar(&p.secret, "secret", "", "New password")
	fs.StringArrayVar(&p.fields, "field", nil, "Set a custom field as name=value, an empty value removes it")
	fs.StringSliceVar(&p.tags, "tag", nil, "Add tags, repeatable or comma separated")
	return cmd
}

func (c *Cli) runEdit(ctx context.Context, ref string, changed map[string]string, fields, tags []string) error {
	for _, f := range fields {
		name, value, found := strings.Cut(f, "=")
		if !found {
			return fmt.Errorf("invalid field %q, expected name=value", f)
		}
		if err := validation.ValidateFieldName(name); err != nil {
			return err
		}
		changed[name] = value
	}
	if len(changed) == 0 && len(tags) == 0 {
		return fmt.Errorf("nothing to change")
	}

	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	e, err := findEntry(db.Database, ref)
	if err != nil {
		return err
	}

	limits := db.Meta.HistoryLimits()
	e.CreateBackup(&limits)
	for name, value := range changed {
		if !models.IsStandardField(name) && value == "" {
			delete(e.Strings, name)
			continue
		}
		e.SetString(name, value, db.Meta.MemoryProtection.IsProtected(name))
	}
	for _, t := range tags {
		e.AddTag(strings.TrimSpace(t))
	}
	e.Touch(true, false)
	db.Modified = true

	if err := c.save(ctx, db); err != nil {
		return err
	}
	c.io.Printf("%s Entry %s updated\n", ok(), highlight(e.Title()))
	return nil
}

func (c *Cli) newListCommand() *cobra.Command {
	var (
		group  string
		search string
		tag    string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd.Context(), group, search, tag, all)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&group, "group", "", "Only entries below this group path")
	fs.StringVar(&search, "search", "", "Case-insensitive text filter over fields and tags")
	fs.StringVar(&tag, "tag", "", "Only entries with this tag")
	fs.BoolVar(&all, "all", false, "Include the recycle bin and groups with searching disabled")
	return cmd
}

func (c *Cli) runList(ctx context.Context, groupPath, search, tag string, all bool) error {
	db, err := c.openDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	root, err := findGroup(db.Database, groupPath, false)
	if err != nil {
		return err
	}

	text := models.MatchText(search, false)
	entries := root.FindEntries(func(e *models.Entry) bool {
		if !all && db.InRecycleBin(e) {
			return false
		}
		if tag != "" && !models.HasTag(tag)(e) {
			return false
		}
		return text(e)
	}, all)

	if len(entries) == 0 {
		c.io.Println("No entries found.")
		return nil
	}

	c.io.Printf("Found %d entries:\n\n", len(entries))
	for _, e := range entries {
		path := e.Parent().Path("/", false)
		title := e.Title()
		if path != "" {
			title = path + "/" + title
		}
		c.io.Printf("%s  %s", muted(e.UUID.String()), highlight(title))
		if user := e.Strings.Value(models.FieldUserName); user != "" {
			c.io.Printf("  (%s)", user)
		}
		c.io.Println()
	}
	return nil
}

func (c *Cli) newShowCommand() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show full entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd.Context(), args[0], reveal)
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print protected values in clear text")
	return cmd
}

func (c *Cli) runShow(ctx context.Context, ref string, reveal bool) error {
	db, err := c.openDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	e, err := findEntry(db.Database, ref)
	if err != nil {
		return err
	}

	c.io.Printf("=== %s ===\n", highlight(e.Title()))
	c.io.Printf("ID:       %s\n", e.UUID)
	c.io.Printf("Group:    %s\n", e.Parent().Path("/", true))
	for _, name := range models.StandardFields[1:] {
		c.io.Printf("%-9s %s\n", name+":", c.fieldValue(e, name, reveal))
	}

	var custom []string
	for _, name := range e.Strings.Keys() {
		if !models.IsStandardField(name) {
			custom = append(custom, name)
		}
	}
	if len(custom) > 0 {
		c.io.Println()
		c.io.Println("Fields:")
		for _, name := range custom {
			c.io.Printf("  %s: %s\n", name, c.fieldValue(e, name, reveal))
		}
	}
	if len(e.Binaries) > 0 {
		c.io.Printf("Attachments: %s\n", strings.Join(e.Binaries.Keys(), ", "))
	}
	if len(e.Tags) > 0 {
		c.io.Printf("Tags:     %s\n", strings.Join(e.Tags, ", "))
	}

	c.io.Println()
	c.io.Printf("Created:  %s\n", formatTime(e.Times.Creation))
	c.io.Printf("Modified: %s\n", formatTime(e.Times.LastModification))
	if e.Times.Expires {
		c.io.Printf("Expires:  %s\n", formatTime(e.Times.Expiry))
	}
	c.io.Printf("History:  %d versions\n", len(e.History))
	if db.InRecycleBin(e) {
		c.io.Println(warning("This entry is in the recycle bin"))
	}
	return nil
}

// fieldValue masks protected values unless reveal is set.
func (c *Cli) fieldValue(e *models.Entry, name string, reveal bool) string {
	v := e.Strings.Get(name)
	if v.IsProtected() && !reveal {
		if v.IsEmpty() {
			return ""
		}
		return hiddenValue
	}
	return v.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func (c *Cli) newRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id|title>",
		Aliases: []string{"delete"},
		Short:   "Delete an entry (moves it to the recycle bin when enabled)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRemove(cmd.Context(), args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *Cli) runRemove(ctx context.Context, ref string, yes bool) error {
	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	e, err := findEntry(db.Database, ref)
	if err != nil {
		return err
	}

	if !yes {
		answer, err := c.io.ReadInput(fmt.Sprintf("Delete entry %q? [y/N]: ", e.Title()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			c.io.Println("Cancelled.")
			return nil
		}
	}

	permanent, err := db.DeleteEntry(e, models.Now())
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if err := c.save(ctx, db); err != nil {
		return err
	}

	if permanent {
		c.io.Printf("%s Entry %s deleted permanently\n", ok(), highlight(e.Title()))
	} else {
		c.io.Printf("%s Entry %s moved to the recycle bin\n", ok(), highlight(e.Title()))
	}
	return nil
}

func (c *Cli) newHistoryCommand() *cobra.Command {
	var restore, remove int
	cmd := &cobra.Command{
		Use:   "history <id|title>",
		Short: "List, restore or delete previous versions of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("restore") && cmd.Flags().Changed("delete") {
				return fmt.Errorf("--restore and --delete are mutually exclusive")
			}
			return c.runHistory(cmd.Context(), args[0], restore, remove)
		},
	}
	cmd.Flags().IntVar(&restore, "restore", -1, "Restore the version with this index")
	cmd.Flags().IntVar(&remove, "delete", -1, "Delete the version with this index")
	return cmd
}

func (c *Cli) runHistory(ctx context.Context, ref string, restore, remove int) error {
	write := restore >= 0 || remove >= 0
	db, err := c.openDatabase(ctx, write)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	e, err := findEntry(db.Database, ref)
	if err != nil {
		return err
	}

	if !write {
		return c.printHistory(e)
	}

	switch {
	case restore >= 0:
		limits := db.Meta.HistoryLimits()
		if err := e.RestoreFromBackup(restore, &limits); err != nil {
			return fmt.Errorf("failed to restore version: %w", err)
		}
		e.Touch(true, false)
	default:
		if err := e.DeleteBackup(remove); err != nil {
			return fmt.Errorf("failed to delete version: %w", err)
		}
	}
	db.Modified = true

	if err := c.save(ctx, db); err != nil {
		return err
	}
	if restore >= 0 {
		c.io.Printf("%s Version %d restored\n", ok(), restore)
	} else {
		c.io.Printf("%s Version %d deleted\n", ok(), remove)
	}
	return nil
}

func (c *Cli) printHistory(e *models.Entry) error {
	if len(e.History) == 0 {
		c.io.Printf("Entry %s has no history.\n", highlight(e.Title()))
		return nil
	}

	// История хранится от старых версий к новым
	c.io.Printf("History of %s:\n\n", highlight(e.Title()))
	for i, h := range e.History {
		c.io.Printf("%3d  %s  %s\n", i, formatTime(h.Times.LastModification), h.Title())
	}
	return nil
}

func (c *Cli) save(ctx context.Context, db *kdbx.Database) error {
	if err := db.Save(ctx, c.status()); err != nil {
		return fmt.Errorf("failed to save database: %w", err)
	}
	return nil
}
