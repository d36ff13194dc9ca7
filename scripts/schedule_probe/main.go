// Command schedule_probe prints the availability window a recurrence rule
// produces for a given completion instant. Handy for checking what a task's
// cooldown will look like across timezones and month boundaries without
// touching a database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/recurrence"
)

func main() {
	var (
		kind       string
		weekday    int
		dayOfMonth int
		timezone   string
		completed  string
		steps      int
	)

	flag.StringVar(&kind, "kind", "DAILY", "recurrence kind: NONE, DAILY, WEEKLY or MONTHLY")
	flag.IntVar(&weekday, "weekday", 0, "weekday for WEEKLY rules (0 = Sunday)")
	flag.IntVar(&dayOfMonth, "day", 1, "day of month for MONTHLY rules (1-31)")
	flag.StringVar(&timezone, "tz", "UTC", "IANA timezone for day boundaries")
	flag.StringVar(&completed, "completed", "", "completion instant, RFC 3339 (default: now)")
	flag.IntVar(&steps, "steps", 1, "number of consecutive cycles to print")
	flag.Parse()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", timezone, err)
	}

	last := time.Now().UTC()
	if completed != "" {
		last, err = time.Parse(time.RFC3339, completed)
		if err != nil {
			log.Fatalf("invalid completion instant %q: %v", completed, err)
		}
	}

	rule := models.RecurrenceRule{
		Kind:       models.RecurrenceKind(kind),
		Weekday:    weekday,
		DayOfMonth: dayOfMonth,
	}
	if err := recurrence.ValidateRule(rule); err != nil {
		log.Fatalf("invalid rule: %v", err)
	}

	fmt.Printf("rule: %s (tz %s)\n", kind, timezone)
	for i := 0; i < steps; i++ {
		next, err := recurrence.NextAvailable(last, rule, loc)
		if err != nil {
			log.Fatalf("compute next availability: %v", err)
		}
		if next == nil {
			fmt.Printf("completed %s -> never re-locks\n", last.Format(time.RFC3339))
			os.Exit(0)
		}
		fmt.Printf("completed %s -> available %s (%s local)\n",
			last.Format(time.RFC3339), next.Format(time.RFC3339), next.In(loc).Format("Mon 2006-01-02 15:04"))
		last = *next
	}
}
