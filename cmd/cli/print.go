package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// ANSI
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	White  = "\033[97m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
)

func printOK(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s[ok]%s %s\n", Green, Reset, fmt.Sprintf(format, args...))
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintf(w, "  %sno users%s\n", Dim, Reset)
		return
	}
	fmt.Fprintf(w, "  %s%-36s  %-24s  %-32s  %s%s\n", Dim, "ID", "NAME", "EMAIL", "CREATED", Reset)
	for _, u := range users {
		fmt.Fprintf(w, "  %-36s  %-24s  %-32s  %s\n", u.ID, u.Name, u.Email, u.CreatedAt.Format(time.RFC3339))
	}
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "  %s%sUser%s\n", Bold, White, Reset)
	fmt.Fprintf(w, "  %-8s %s\n", "id", u.ID)
	fmt.Fprintf(w, "  %-8s %s\n", "name", u.Name)
	fmt.Fprintf(w, "  %-8s %s\n", "email", u.Email)
	fmt.Fprintf(w, "  %-8s %s\n", "created", u.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  %-8s %s\n", "updated", u.UpdatedAt.Format(time.RFC3339))
}

func printNotifications(w io.Writer, records []models.NotificationRecord) {
	if len(records) == 0 {
		fmt.Fprintf(w, "  %sno notifications%s\n", Dim, Reset)
		return
	}
	fmt.Fprintf(w, "  %s%-20s  %-6s  %-36s  %-32s  %s%s\n", Dim, "SENT AT", "STATUS", "USER", "TO", "REASON", Reset)
	for _, r := range records {
		color := Green
		if r.Status == models.StatusError {
			color = Red
		}
		fmt.Fprintf(w, "  %-20s  %s%-6s%s  %-36s  %-32s  %s\n",
			r.SentAt.Format("2006-01-02 15:04:05"), color, r.Status, Reset,
			r.CorrelationID, r.EmailTo, r.FailureReason)
	}
}
