package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/spf13/cobra"
)

func newMkdirCommand(a *app) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "mkdir <parent> <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			parentID, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			props := map[string]any{cmis.PropName: args[1]}
			if description != "" {
				props[cmis.PropDescription] = description
			}

			id, err := b.CreateFolder(ctx, props, parentID)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", id)
		}),
	}

	cmd.Flags().StringVar(&description, "description", "", "Folder description")
	return cmd
}

func newPutCommand(a *app) *cobra.Command {
	var (
		name        string
		mimeType    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "put <folder> [file|-]",
		Short: "Create a document, optionally with content read from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			folderID, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			var stream *cmis.ContentStream
			if len(args) == 2 {
				stream, err = openContent(cmd, args[1], mimeType)
				if err != nil {
					return err
				}
				defer func() { _ = stream.Close() }()
				if name == "" {
					name = stream.FileName
				}
			}
			if name == "" {
				return fmt.Errorf("--name is required when no file is given")
			}

			props := map[string]any{cmis.PropName: name}
			if description != "" {
				props[cmis.PropDescription] = description
			}

			id, err := b.CreateDocument(ctx, props, folderID, stream)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", id)
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Document name (default the file's base name)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Content MIME type (default detected)")
	cmd.Flags().StringVar(&description, "description", "", "Document description")
	return cmd
}

func newSetContentCommand(a *app) *cobra.Command {
	var (
		noOverwrite bool
		mimeType    string
	)

	cmd := &cobra.Command{
		Use:   "set-content <document> <file|->",
		Short: "Replace the content of a document",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			stream, err := openContent(cmd, args[1], mimeType)
			if err != nil {
				return err
			}
			defer func() { _ = stream.Close() }()

			newID, err := b.SetContentStream(ctx, id, !noOverwrite, stream)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", newID)
		}),
	}

	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "Fail if the document already has content")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Content MIME type (default detected)")
	return cmd
}

func newRmContentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-content <document>",
		Short: "Remove the content of a document",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			newID, err := b.DeleteContentStream(ctx, id)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", newID)
		}),
	}
}

func newSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <object> <property=value>...",
		Short: "Update properties of an object (property= clears a value)",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}

			props, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			newID, err := b.UpdateProperties(ctx, id, props)
			if err != nil {
				return err
			}
			return a.printID(cmd.OutOrStdout(), "id", newID)
		}),
	}
}

func newRmCommand(a *app) *cobra.Command {
	var allVersions bool

	cmd := &cobra.Command{
		Use:   "rm <object>",
		Short: "Delete a document or an empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error {
			id, err := resolve(ctx, b, args[0])
			if err != nil {
				return err
			}
			return b.DeleteObject(ctx, id, allVersions)
		}),
	}

	cmd.Flags().BoolVar(&allVersions, "all-versions", false, "Delete every version of the document's series")
	return cmd
}

// openContent opens path as a content stream. "-" reads the command's
// input, whose length is unknown.
func openContent(cmd *cobra.Command, path, mimeType string) (*cmis.ContentStream, error) {
	if path == "-" {
		return cmis.NewContentStream(io.NopCloser(cmd.InOrStdin()), mimeType, "", -1), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return cmis.NewContentStream(f, mimeType, filepath.Base(path), info.Size()), nil
}
