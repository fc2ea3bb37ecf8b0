package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/spf13/cobra"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show repository information",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string, b *cmis.Bridge) error {
			info := b.GetRepositoryInfo(ctx)
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), info)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Repository:\t%s (%s)\n", info.Name, info.ID)
			if info.Description != "" {
				fmt.Fprintf(tw, "Description:\t%s\n", info.Description)
			}
			fmt.Fprintf(tw, "Product:\t%s %s by %s\n", info.ProductName, info.ProductVersion, info.VendorName)
			fmt.Fprintf(tw, "CMIS version:\t%s\n", info.CMISVersion)
			fmt.Fprintf(tw, "Root folder:\t%s\n", info.RootFolderID)
			fmt.Fprintf(tw, "Versioning:\t%v\n", info.Capabilities.Versioning)
			fmt.Fprintf(tw, "Content updates:\t%s\n", info.Capabilities.ContentStreamUpdatability)
			fmt.Fprintf(tw, "Stores:\tmetadata=%s content=%s\n", a.cfg.Metadata.Type, a.cfg.Content.Type)

			health := "ok"
			if err := a.repo.Healthcheck(ctx); err != nil {
				health = err.Error()
			}
			fmt.Fprintf(tw, "Health:\t%s\n", health)
			return tw.Flush()
		}),
	}
}

func newTypesCommand(a *app) *cobra.Command {
	var page cmis.ListOptions

	cmd := &cobra.Command{
		Use:   "types [type-id]",
		Short: "List base types, or the subtypes of a type",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			typeID := ""
			if len(args) == 1 {
				typeID = args[0]
			}

			list, err := b.GetTypeChildren(ctx, typeID, false, page)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), list)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tBASE\tDISPLAY NAME")
			for _, def := range list.Types {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", def.ID, def.BaseType, def.DisplayName)
			}
			return tw.Flush()
		}),
	}

	addPageFlags(cmd, &page)
	return cmd
}

func newTypeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "type <type-id>",
		Short: "Show a type definition and its properties",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			def, err := b.GetTypeDefinition(ctx, args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), def)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s), base %s\n", def.ID, def.DisplayName, def.BaseType)
			if !def.IsFolder() {
				fmt.Fprintf(w, "versionable=%v content=%s\n", def.Versionable, def.ContentStreamAllowed)
			}
			fmt.Fprintln(w)

			tw := newTable(w)
			fmt.Fprintln(tw, "PROPERTY\tTYPE\tCARDINALITY\tUPDATABILITY\tREQUIRED")
			for _, id := range def.PropertyIDs() {
				prop := def.PropertyDefinitions[id]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", prop.ID, prop.Type, prop.Cardinality, prop.Updatability, prop.Required)
			}
			return tw.Flush()
		}),
	}
}

func newLsCommand(a *app) *cobra.Command {
	var page cmis.ListOptions

	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the children of a folder (default root)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			folderID, err := resolveFolder(ctx, b, args)
			if err != nil {
				return err
			}

			opts := cmis.ObjectOptions{IncludePathSegment: true}
			list, err := b.GetChildren(ctx, folderID, opts, page)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				entries := make([]map[string]any, 0, len(list.Objects))
				for _, child := range list.Objects {
					entries = append(entries, objectJSON(child.Object))
				}
				return a.printJSON(cmd.OutOrStdout(), map[string]any{
					"objects":      entries,
					"hasMoreItems": list.HasMoreItems,
					"numItems":     list.NumItems,
				})
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tVERSION\tID")
			for _, child := range list.Objects {
				props := child.Object.Properties
				size := ""
				if length := props.Value(cmis.PropContentStreamLength); length != nil {
					size = formatValue(length)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					child.PathSegment,
					props.String(cmis.PropBaseTypeID),
					size,
					props.String(cmis.PropVersionLabel),
					child.Object.ID())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if list.HasMoreItems {
				fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d shown)\n", len(list.Objects), list.NumItems)
			}
			return nil
		}),
	}

	addPageFlags(cmd, &page)
	return cmd
}

func newStatCommand(a *app) *cobra.Command {
	var (
		filter  string
		actions bool
	)

	cmd := &cobra.Command{
		Use:   "stat <object>",
		Short: "Show the properties of an object",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			obj, err := b.GetObject(ctx, id, cmis.ObjectOptions{
				Filter:                  cmis.ParseFilter(filter),
				IncludeAllowableActions: actions,
			})
			if err != nil {
				return err
			}
			return a.printObject(cmd.OutOrStdout(), obj)
		}),
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Comma-separated property ids to show (default all)")
	cmd.Flags().BoolVar(&actions, "actions", false, "Include the allowable actions")
	return cmd
}

func newParentsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parents <object>",
		Short: "List the parent folders of an object",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			parents, err := b.GetObjectParents(ctx, id, cmis.ObjectOptions{
				Filter:             cmis.NewFilter(cmis.PropObjectID, cmis.PropName, cmis.PropPath),
				IncludePathSegment: true,
			})
			if err != nil {
				return err
			}

			if a.jsonOutput {
				entries := make([]map[string]any, 0, len(parents))
				for _, parent := range parents {
					entry := objectJSON(parent.Object)
					entry["relativePathSegment"] = parent.RelativePathSegment
					entries = append(entries, entry)
				}
				return a.printJSON(cmd.OutOrStdout(), entries)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "PATH\tSEGMENT\tID")
			for _, parent := range parents {
				props := parent.Object.Properties
				fmt.Fprintf(tw, "%s\t%s\t%s\n", props.String(cmis.PropPath), parent.RelativePathSegment, parent.Object.ID())
			}
			return tw.Flush()
		}),
	}
}

func newGetCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <document>",
		Short: "Write the content of a document to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) (err error) {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			stream, err := b.GetContentStream(ctx, id)
			if err != nil {
				return err
			}
			defer func() { _ = stream.Close() }()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() {
					if closeErr := f.Close(); closeErr != nil && err == nil {
						err = closeErr
					}
				}()
				w = f
			}

			if _, err := io.Copy(w, stream); err != nil {
				return fmt.Errorf("failed to read content of %s: %w", id, err)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write content to this file instead of stdout")
	return cmd
}

func addPageFlags(cmd *cobra.Command, page *cmis.ListOptions) {
	cmd.Flags().IntVar(&page.MaxItems, "max-items", 0, "Maximum number of items to return (0 for all)")
	cmd.Flags().IntVar(&page.SkipCount, "skip-count", 0, "Number of items to skip")
}
