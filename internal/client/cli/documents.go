package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/docvault/internal/netx"
	"github.com/dmitrijs2005/docvault/internal/server/models"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

// Test seams.
var (
	readFile = os.ReadFile
	download = netx.DownloadFromSignedURL
)

// Upload handles "upload <path> <document-type> [name]".
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("upload <path> <id|passport|driving_license|photo|medical|agreement> [name]")
	}
	path, docType := args[0], args[1]

	content, err := readFile(path)
	if err != nil {
		return a.fail(err)
	}

	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	if len(args) > 2 {
		name = strings.Join(args[2:], " ")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	doc, err := a.api.Upload(ctx, &gs.UploadDocumentRequest{
		Name:         name,
		DocumentType: docType,
		FileType:     strings.ToLower(strings.TrimPrefix(ext, ".")),
		ContentType:  mime.TypeByExtension(ext),
		Content:      content,
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Uploaded %s (%d bytes) as %s\n", doc.Name, doc.Size, doc.ID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	docs, err := a.api.ListDocuments(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printDocuments(docs, true)
	return nil
}

// Shared handles "shared [connection-id]": documents others shared with
// the caller.
func (a *App) Shared(ctx context.Context, args []string) error {
	connectionID := ""
	if len(args) > 0 {
		connectionID = args[0]
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	docs, err := a.api.SharedWithMe(ctx, connectionID)
	if err != nil {
		return a.fail(err)
	}
	a.printDocuments(docs, false)
	return nil
}

// Share handles "share <connection-id> <recipient-id> <doc-id>...".
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return a.usage("share <connection-id> <recipient-id> <doc-id>...")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.api.Share(ctx, args[0], args[1], args[2:])
	if err != nil {
		return a.fail(err)
	}
	for _, s := range res.Created {
		fmt.Fprintf(a.out, "Shared %s, pending acceptance until %s\n", s.DocumentID, s.ExpiresAt.Local().Format(time.DateTime))
	}
	for _, id := range res.Skipped {
		fmt.Fprintf(a.out, "Skipped %s: already shared\n", id)
	}
	return nil
}

// View handles "view <doc-id> [connection-id]" and prints a signed link.
func (a *App) View(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("view <doc-id> [connection-id]")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.api.View(ctx, args[0], optional(args, 1))
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "%s\n(valid until %s)\n", res.URL, res.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

// Download handles "download <doc-id> [connection-id]" and saves the file
// under the configured download directory.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("download <doc-id> [connection-id]")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.api.View(ctx, args[0], optional(args, 1))
	if err != nil {
		return a.fail(err)
	}

	if err := os.MkdirAll(a.config.DownloadDir, 0o700); err != nil {
		return a.fail(err)
	}
	path := filepath.Join(a.config.DownloadDir, fileName(res.Document))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return a.fail(err)
	}
	n, err := download(ctx, res.URL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, n)
	return nil
}

// Respond handles "accept <doc-id>" and "reject <doc-id>" for shares
// addressed to the caller.
func (a *App) Respond(ctx context.Context, args []string, status models.ShareStatus) error {
	if len(args) != 1 {
		return a.usage("accept|reject <doc-id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	sh, err := a.api.UpdateShareStatus(ctx, args[0], status)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Share of %s is now %s\n", sh.DocumentID, sh.Status)
	return nil
}

// Revoke handles "revoke <doc-id> [recipient-id]".
func (a *App) Revoke(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("revoke <doc-id> [recipient-id]")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	n, err := a.api.Revoke(ctx, args[0], optional(args, 1))
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Revoked %d share(s)\n", n)
	return nil
}

// Delete handles "delete <doc-id>".
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete <doc-id>")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Delete(ctx, args[0]); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

func (a *App) printDocuments(docs []*models.Document, withShares bool) {
	if len(docs) == 0 {
		fmt.Fprintln(a.out, "No documents")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tFILE\tSIZE\tOWNER")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", d.ID, d.Name, d.DocumentType, d.FileType, d.Size, d.UserID)
		if !withShares {
			continue
		}
		for _, s := range d.SharedWith {
			fmt.Fprintf(tw, "\t-> %s\t%s\tuntil %s\t\t\n", s.RecipientID, s.Status, s.ExpiresAt.Local().Format(time.DateTime))
		}
	}
	_ = tw.Flush()
}

func fileName(d *models.Document) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, d.Name)
	if name == "" {
		name = d.ID
	}
	return name + "." + string(d.FileType)
}

func optional(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
