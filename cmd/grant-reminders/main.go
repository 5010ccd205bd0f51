// Command grant-reminders emails a digest of overdue and critical grant
// deadlines.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"grants-management-api/config"
	"grants-management-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		recipientsRaw string
		dryRun        bool
	)
	flag.StringVar(&recipientsRaw, "to", os.Getenv("REMINDER_RECIPIENTS"), "comma-separated recipient addresses")
	flag.BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	flag.Parse()

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}
	config.InitDB()
	logger := config.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recipients []string
	for _, r := range strings.Split(recipientsRaw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}

	reminders := services.NewReminderService(services.NewGrantService(nil, nil), nil)

	if dryRun {
		digest, err := reminders.Collect(ctx)
		if err != nil {
			logger.WithError(err).Fatal("failed to collect reminders")
		}
		for _, item := range digest.Items {
			fmt.Printf("%-12s %-9s %s | %s | due %s\n", item.Kind, item.Urgency.Tier, item.GrantName, item.Title, item.DueDate.Format("2006-01-02"))
		}
		fmt.Printf("%d item(s)\n", len(digest.Items))
		return
	}

	if len(recipients) == 0 {
		log.Fatal("no recipients: pass -to or set REMINDER_RECIPIENTS")
	}
	digest, err := reminders.Send(ctx, recipients)
	if err != nil {
		logger.WithError(err).Fatal("reminder run failed")
	}
	fmt.Printf("Digest with %d item(s) processed for %d recipient(s)\n", len(digest.Items), len(recipients))
}
