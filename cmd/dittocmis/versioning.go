package main

import (
	"context"
	"fmt"

	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/spf13/cobra"
)

func newCheckoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <document>",
		Short: "Check out a document and print the working copy id",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			result, err := b.CheckOut(ctx, id)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), map[string]any{
					"id":            result.ID,
					"contentCopied": result.ContentCopied,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.ID)
			return err
		}),
	}
}

func newCancelCheckoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-checkout <working-copy>",
		Short: "Discard a private working copy",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}
			return b.CancelCheckOut(ctx, id)
		}),
	}
}

func newCheckinCommand(a *app) *cobra.Command {
	var (
		major      bool
		comment    string
		file       string
		mimeType   string
		properties []string
	)

	cmd := &cobra.Command{
		Use:   "checkin <working-copy>",
		Short: "Check in a private working copy as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			req := cmis.CheckInRequest{Major: major, Comment: comment}
			if len(properties) > 0 {
				if req.Properties, err = parseAssignments(properties); err != nil {
					return err
				}
			}
			if file != "" {
				if req.Content, err = openContent(cmd, file, mimeType); err != nil {
					return err
				}
				defer func() { _ = req.Content.Close() }()
			}

			newID, err := b.CheckIn(ctx, id, req)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", newID)
		}),
	}

	cmd.Flags().BoolVar(&major, "major", false, "Create a major version")
	cmd.Flags().StringVarP(&comment, "message", "m", "", "Check-in comment")
	cmd.Flags().StringVar(&file, "file", "", "Replace the content with this file (- for stdin)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Content MIME type (default detected)")
	cmd.Flags().StringArrayVarP(&properties, "property", "p", nil, "Property update as id=value (repeatable)")
	return cmd
}

func newVersionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <document>",
		Short: "List the versions of a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			versions, err := b.GetAllVersions(ctx, id, cmis.ObjectOptions{})
			if err != nil {
				return err
			}

			if a.jsonOutput {
				entries := make([]map[string]any, 0, len(versions))
				for _, v := range versions {
					entries = append(entries, objectJSON(v))
				}
				return a.printJSON(cmd.OutOrStdout(), entries)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "LABEL\tLATEST\tMODIFIED\tCOMMENT\tID")
			for _, v := range versions {
				props := v.Properties
				fmt.Fprintf(tw, "%s\t%v\t%s\t%s\t%s\n",
					props.String(cmis.PropVersionLabel),
					props.Bool(cmis.PropIsLatestVersion),
					formatValue(props.Value(cmis.PropLastModificationDate)),
					props.String(cmis.PropCheckinComment),
					v.ID())
			}
			return tw.Flush()
		}),
	}
}
