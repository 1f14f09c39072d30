package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/metacast/config"
)

func configCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration hierarchy",
	}

	cmd.AddCommand(configGetCmd(opts))
	cmd.AddCommand(configSetCmd(opts))
	cmd.AddCommand(configDescribeCmd(opts))

	return cmd
}

// contextFlags adds the item/group/publisher selection flags and returns the
// bound Context builder.
func contextFlags(cmd *cobra.Command) func() config.Context {
	var item, group, publisher string
	cmd.Flags().StringVar(&item, "item", "", "Item ID")
	cmd.Flags().StringVar(&group, "group", "", "Group/imprint name")
	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher name")
	return func() config.Context {
		return config.Context{ItemID: item, GroupName: group, PublisherName: publisher}
	}
}

func configGetCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Resolve a configuration key through the hierarchy",
		Args:  cobra.ExactArgs(1),
	}
	ctxOf := contextFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(opts)
		if err != nil {
			return err
		}
		defer a.store.Close()

		value, entry, found, err := a.resolver.Get(args[0], ctxOf(), nil)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %s is not defined at any level", args[0])
		}
		fmt.Printf("%s = %s  (%s, %s)\n", args[0], config.Stringify(value), entry.Level, entry.Source)
		return nil
	}

	return cmd
}

func configSetCmd(opts *appOptions) *cobra.Command {
	var (
		levelName string
		persist   bool
	)

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a configuration value at a level",
		Args:  cobra.ExactArgs(2),
	}
	ctxOf := contextFlags(cmd)
	cmd.Flags().StringVar(&levelName, "level", "global", "Target level (global, publisher, group, item)")
	cmd.Flags().BoolVar(&persist, "persist", false, "Write through to the level's file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(opts)
		if err != nil {
			return err
		}
		defer a.store.Close()

		level, err := parseLevel(levelName)
		if err != nil {
			return err
		}

		if err := a.resolver.Set(args[0], args[1], level, ctxOf(), persist); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s at %s\n", args[0], args[1], level)
		return nil
	}

	return cmd
}

func configDescribeCmd(opts *appOptions) *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "describe <key>",
		Short: "Show the winning entry and every candidate for a key",
		Args:  cobra.ExactArgs(1),
	}
	ctxOf := contextFlags(cmd)
	cmd.Flags().BoolVar(&effective, "effective", false, "Also print the merged effective view")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(opts)
		if err != nil {
			return err
		}
		defer a.store.Close()

		desc, err := a.resolver.Describe(args[0], ctxOf())
		if err != nil {
			return err
		}

		if desc.Winner == nil {
			fmt.Printf("%s: not defined at any level\n", args[0])
		} else {
			fmt.Printf("%s = %s  (winner: %s)\n", args[0], config.Stringify(desc.Winner.Value), desc.Winner.Level)
		}
		for _, c := range desc.Candidates {
			fmt.Printf("  %-14s %-40s %s\n", c.Level, config.Stringify(c.Value), c.Source)
		}

		if effective {
			merged, err := a.resolver.Effective(ctxOf())
			if err != nil {
				return err
			}
			fmt.Println("\nEffective view:")
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(merged); err != nil {
				return err
			}
			return enc.Close()
		}
		return nil
	}

	return cmd
}

func parseLevel(name string) (config.Level, error) {
	switch name {
	case "global":
		return config.LevelGlobal, nil
	case "publisher":
		return config.LevelPublisher, nil
	case "group":
		return config.LevelGroup, nil
	case "item":
		return config.LevelItem, nil
	default:
		return 0, fmt.Errorf("unknown level %q (use global, publisher, group, or item)", name)
	}
}
