package main

import (
	"chat-relay/repositories"
	"chat-relay/storage"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// inspect dumps the relay store without writing to it.
// The relay must be stopped: badger holds an exclusive lock on the directory.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	what := flag.String("show", "all", "users, messages or all")
	flag.Parse()

	logger := logs.GetLoggerFromString("ERROR")
	store := storage.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR), logger)
	defer store.Close()
	if !store.Available() {
		log.Fatalf("Unable to open %s", *dbPath)
	}

	if *what == "users" || *what == "all" {
		if err := printUsers(repositories.NewUserRepository(store)); err != nil {
			log.Fatal(err)
		}
	}
	if *what == "messages" || *what == "all" {
		if err := printMessages(repositories.NewMessageRepository(store, logger)); err != nil {
			log.Fatal(err)
		}
	}
}

func printUsers(repository repositories.IUserRepository) error {
	users, err := repository.ListUsers()
	if err != nil {
		return err
	}
	table := newTable("Id", "Email", "Created")
	for _, u := range users {
		table.Append([]string{u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	fmt.Printf("%d users\n", len(users))
	table.Render()
	return nil
}

func printMessages(repository repositories.MessageRepository) error {
	messages, err := repository.ListMessages()
	if err != nil {
		return err
	}
	table := newTable("Seq", "Id", "Sender", "Receiver", "At", "Content")
	for _, m := range messages {
		// Keep long bodies on one line
		content := m.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		table.Append([]string{
			strconv.FormatUint(m.Seq, 10),
			m.ID,
			m.Sender,
			m.Receiver,
			m.At.Format("15:04:05"),
			content,
		})
	}
	fmt.Printf("%d messages\n", len(messages))
	table.Render()
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
