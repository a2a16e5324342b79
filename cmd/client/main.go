// Package main implements the Buzzdrop command-line client. It encrypts
// payloads locally before upload and decrypts after download; the server
// only ever sees ciphertext.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/buzzdrop/buzzdrop/internal/client"
	"github.com/buzzdrop/buzzdrop/internal/crypto"
)

var (
	version   string
	buildDate string
)

func main() {
	var (
		cmd       string
		baseURL   string
		login     string
		loginPass string
		file      string
		text      string
		id        string
		password  string
		expiry    string
		out       string
		showVer   bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: upload | note | download")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&login, "login", "", "account username (upload/note)")
	flag.StringVar(&loginPass, "pass", "", "account password (upload/note)")
	flag.StringVar(&file, "file", "", "path of the file to share")
	flag.StringVar(&text, "text", "", "text note to share")
	flag.StringVar(&id, "id", "", "share ID to download")
	flag.StringVar(&password, "password", "", "share password (never sent to the server)")
	flag.StringVar(&expiry, "expiry", "", "optional expiry, RFC 3339")
	flag.StringVar(&out, "out", "", "output path for downloaded files")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Buzzdrop Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ctx := context.Background()
	svc := crypto.New(crypto.DefaultParams())

	api, err := client.New(baseURL)
	if err != nil {
		log.Fatal(err)
	}

	switch cmd {
	case "upload":
		if file == "" {
			log.Fatal("please provide -file=path")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatal(err)
		}
		uploadShare(ctx, api, svc, login, loginPass, password, filepath.Base(file), "file", expiry, data)

	case "note":
		if text == "" {
			log.Fatal("please provide -text=note")
		}
		uploadShare(ctx, api, svc, login, loginPass, password, "note.txt", "text", expiry, []byte(text))

	case "download":
		if id == "" {
			log.Fatal("please provide -id=share-id")
		}
		downloadShare(ctx, api, svc, id, password, out)

	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}

func uploadShare(
	ctx context.Context,
	api *client.Client,
	svc *crypto.Service,
	login, loginPass, password, name, kind, expiry string,
	data []byte,
) {
	if password == "" {
		log.Fatal("please provide -password for the share")
	}
	if login == "" || loginPass == "" {
		log.Fatal("please provide -login and -pass")
	}

	packed, err := svc.Encrypt(ctx, data, password)
	if err != nil {
		log.Fatal(err)
	}

	if err := api.Login(ctx, login, loginPass); err != nil {
		log.Fatal(err)
	}
	result, err := api.Upload(ctx, name, kind, expiry, packed)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Share created.\nID:   %s\nLink: %s\n", result.ID, result.ShareLink)
	fmt.Println("The link works exactly once; share the password separately.")
}

func downloadShare(
	ctx context.Context,
	api *client.Client,
	svc *crypto.Service,
	id, password, out string,
) {
	if password == "" {
		log.Fatal("please provide -password for the share")
	}

	packed, _, err := api.Download(ctx, id)
	if err != nil {
		if errors.Is(err, client.ErrShareUnavailable) {
			log.Fatal("share not found: it may have been downloaded already or expired")
		}
		log.Fatal(err)
	}

	data, err := svc.Decrypt(ctx, packed, password)
	if err != nil {
		// Tell the server the attempt failed, then break the bad news: the
		// payload was deleted when it was served, so there is no second
		// fetch. Retrying is only possible against these local bytes.
		_ = api.Report(ctx, id, false)
		if errors.Is(err, crypto.ErrDecryptFailed) {
			log.Fatal("incorrect password or corrupted data; the server copy is already deleted")
		}
		log.Fatal(err)
	}
	_ = api.Report(ctx, id, true)

	if out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Decrypted payload written to %s (%d bytes)\n", out, len(data))
}
