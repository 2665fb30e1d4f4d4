// archiver is a single-tenant IMAP mailbox archiver: it keeps a local (or
// S3) copy of every message in a set of configured accounts, plus one-off
// PST/OST import.
//
// Usage:
//
//	archiver sync [accountID]   Sync one account, or all enabled accounts
//	archiver import-pst <path> <accountID>   Import a PST/OST file
//	archiver accounts           List configured accounts
//	archiver version            Print version information
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/eslider/imaptalk/internal/blobstore"
	"github.com/eslider/imaptalk/internal/config"
	"github.com/eslider/imaptalk/internal/ingest/pst"
	"github.com/eslider/imaptalk/internal/syncjob"
	"github.com/eslider/imaptalk/internal/syncstate"
)

var version = "1.0.0-dev"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		runSync(os.Args[2:])
	case "import-pst":
		runImportPST(os.Args[2:])
	case "accounts":
		runAccounts()
	case "version":
		fmt.Printf("archiver %s\n", version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: archiver <command>

Commands:
  sync [accountID]            Sync one account, or all enabled accounts if omitted
  import-pst <path> <acctID>  Import a PST/OST file into an account's archive
  accounts                    List configured accounts
  version                     Print version information

Environment:
  DATA_DIR     Base data directory for config, sync state, and filesystem
               blob storage (default: ./data)
  S3_ENDPOINT  If set together with S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY,
               raw messages are written to S3-compatible storage instead of
               the filesystem (see internal/blobstore)`)
}

func openStores() (*config.Store, *syncstate.DB, blobstore.BlobStore) {
	dataDir := envOr("DATA_DIR", "./data")

	accounts := config.NewStore(filepath.Join(dataDir, "accounts.yml"))

	state, err := syncstate.Open(filepath.Join(dataDir, "sync.sqlite"))
	if err != nil {
		log.Fatalf("open sync state: %v", err)
	}

	store, err := blobstore.NewBlobStore(filepath.Join(dataDir, "messages"))
	if err != nil {
		log.Fatalf("open blob store: %v", err)
	}

	return accounts, state, store
}

func runSync(args []string) {
	accounts, state, store := openStores()
	defer state.Close()

	runner := syncjob.NewRunner(accounts, state, store)
	ctx := context.Background()

	progress := func(msg string) { log.Printf("INFO: %s", msg) }

	if len(args) == 0 {
		if err := runner.SyncAll(ctx, progress); err != nil {
			log.Fatalf("sync all: %v", err)
		}
		return
	}

	acct, err := accounts.Get(args[0])
	if err != nil {
		log.Fatalf("account %s: %v", args[0], err)
	}
	n, err := runner.SyncAccount(ctx, *acct, progress)
	if err != nil {
		log.Fatalf("sync %s: %v", acct.Email, err)
	}
	log.Printf("INFO: synced %s: %d new messages", acct.Email, n)
}

func runImportPST(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: archiver import-pst <path> <accountID>")
		os.Exit(1)
	}
	pstPath, accountID := args[0], args[1]

	accounts, _, store := openStores()
	if _, err := accounts.Get(accountID); err != nil {
		log.Fatalf("account %s: %v", accountID, err)
	}

	ctx := context.Background()
	onProgress := func(phase string, current, total int) {
		log.Printf("INFO: pst import %s: %d/%d", phase, current, total)
	}

	extracted, errCount, err := pst.Import(ctx, pstPath, accountID, store, onProgress)
	if err != nil {
		log.Fatalf("import %s: %v", pstPath, err)
	}
	log.Printf("INFO: imported %d messages from %s (%d failed)", extracted, pstPath, errCount)
}

func runAccounts() {
	accounts, _, _ := openStores()
	list, err := accounts.List()
	if err != nil {
		log.Fatalf("list accounts: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("no accounts configured")
		return
	}
	for _, a := range list {
		fmt.Printf("%s  %-30s  %s:%d  sync=%v\n", a.ID, a.Email, a.Host, a.Port, a.Sync.Enabled)
	}
}
