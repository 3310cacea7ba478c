package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mew-app/contacts-sync/pkg/contactsync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := contactsync.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
