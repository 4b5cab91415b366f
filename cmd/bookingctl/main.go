// Command bookingctl prints what a guest would see on the booking page, the
// day states of a month and the slot board of a date, and books through the
// same draft and submit gates the page uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"restaurant-booking-backend/config"
	"restaurant-booking-backend/internal/booking"
	"restaurant-booking-backend/internal/calendar"
	"restaurant-booking-backend/internal/gateway"
	"restaurant-booking-backend/internal/parse"
)

const usage = `usage: bookingctl [flags] <command>

commands:
  month   day states of a month (-month YYYY-MM, default current month)
  day     slot board of a date (-date YYYY-MM-DD, default today)
  book    book a table (-date, -slot or -special, -guests, contact flags)
  health  check the service is ready

flags:
`

type options struct {
	baseURL  string
	config   string
	timezone string
	month    string
	date     string
	redis    string
	timeout  time.Duration
	verbose  bool

	slot      int64
	special   bool
	staff     bool
	guests    int
	firstName string
	lastName  string
	email     string
	phone     string
	requests  string
}

func main() {
	var opts options
	fs := flag.NewFlagSet("bookingctl", flag.ExitOnError)
	fs.StringVar(&opts.baseURL, "url", envOr("BOOKING_URL", "http://localhost:8080"), "booking service base URL")
	fs.StringVar(&opts.config, "config", os.Getenv("CONFIG_PATH"), "service config to take the timezone and redis cache from")
	fs.StringVar(&opts.timezone, "tz", os.Getenv("BOOKING_TZ"), "restaurant timezone used for today (default UTC)")
	fs.StringVar(&opts.month, "month", "", "month to show, YYYY-MM")
	fs.StringVar(&opts.date, "date", "", "date to show or book, YYYY-MM-DD")
	fs.StringVar(&opts.redis, "redis", os.Getenv("BOOKING_REDIS"), "optional redis address for the read cache")
	fs.DurationVar(&opts.timeout, "timeout", 15*time.Second, "overall request timeout")
	fs.BoolVar(&opts.verbose, "v", false, "log degraded lists")
	fs.Int64Var(&opts.slot, "slot", 0, "time slot id to book, 0 picks the first available")
	fs.BoolVar(&opts.special, "special", false, "book the special-hours window of the date")
	fs.BoolVar(&opts.staff, "staff", false, "use the staff quick-reservation flow")
	fs.IntVar(&opts.guests, "guests", 2, "party size")
	fs.StringVar(&opts.firstName, "first", "", "guest first name")
	fs.StringVar(&opts.lastName, "last", "", "guest last name")
	fs.StringVar(&opts.email, "email", "", "guest email")
	fs.StringVar(&opts.phone, "phone", "", "guest phone")
	fs.StringVar(&opts.requests, "requests", "", "special requests")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	if err := run(fs.Arg(0), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bookingctl:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(command string, opts options, out io.Writer) error {
	var redisOpts *redis.Options
	cacheTTL := 30 * time.Second
	if opts.config != "" {
		cfg, err := config.Load(opts.config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if opts.timezone == "" {
			opts.timezone = cfg.Booking.Timezone
		}
		if cfg.Redis.Enabled {
			redisOpts = &redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
			cacheTTL = time.Duration(cfg.Redis.TTLSeconds) * time.Second
		}
	}
	if opts.redis != "" {
		redisOpts = &redis.Options{Addr: opts.redis}
	}
	if opts.timezone == "" {
		opts.timezone = "UTC"
	}

	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}

	level := zerolog.Disabled
	if opts.verbose {
		level = zerolog.WarnLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level).With().Timestamp().Logger()

	client := gateway.New(opts.baseURL, gateway.WithLogger(logger))
	if redisOpts != nil {
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		client.UseRedisCache(rdb, cacheTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch command {
	case "month":
		return printMonth(ctx, client, opts.month, today, out)
	case "day":
		return printDay(ctx, client, opts.date, today, out)
	case "book":
		return book(ctx, client, opts, today, logger, out)
	case "health":
		if err := client.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "ready")
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printMonth(ctx context.Context, client *gateway.Client, raw string, today time.Time, out io.Writer) error {
	year, month := today.Year(), today.Month()
	if raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return errors.New("month must be YYYY-MM")
		}
		year, month = t.Year(), t.Month()
	}

	settings, err := client.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	res, err := client.LoadMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load month: %w", err)
	}

	fmt.Fprintf(out, "%s %d (booking window %d days)\n", month, year, settings.MaxAdvanceBookingDays)
	if len(res.Degraded) > 0 {
		fmt.Fprintf(out, "warning: unavailable lists treated as empty: %s\n", strings.Join(res.Degraded, ", "))
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tWEEKDAY\tSTATE\tHOURS")
	for _, v := range calendar.ResolveMonth(res.Snapshot, today, settings.MaxAdvanceBookingDays) {
		hours := ""
		if w, ok := res.Snapshot.Special[v.Day]; ok {
			hours = w.Start + " - " + w.End
		}
		d, _ := parse.Date(v.Date)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Date, d.Weekday().String()[:3], v.State, hours)
	}
	return tw.Flush()
}

func printDay(ctx context.Context, client *gateway.Client, raw string, today time.Time, out io.Writer) error {
	date := today
	if raw != "" {
		d, err := parse.Date(raw)
		if err != nil {
			return err
		}
		date = d
	}

	settings, err := client.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	month, err := client.LoadMonth(ctx, date.Year(), date.Month())
	if err != nil {
		return fmt.Errorf("load month: %w", err)
	}
	state := calendar.ResolveDay(date, month.Snapshot, today, settings.MaxAdvanceBookingDays)
	fmt.Fprintf(out, "%s: %s\n", parse.FormatDate(date), state)
	if state == calendar.DayPast || state == calendar.DayBeyondWindow || state == calendar.DayClosed {
		return nil
	}

	slots, err := client.TimeSlots(ctx)
	if err != nil {
		return fmt.Errorf("load time slots: %w", err)
	}
	day, err := client.LoadDay(ctx, date, month.Snapshot)
	if err != nil {
		return fmt.Errorf("load day: %w", err)
	}
	if degraded := append(month.Degraded, day.Degraded...); len(degraded) > 0 {
		fmt.Fprintf(out, "warning: unavailable lists treated as empty: %s\n", strings.Join(degraded, ", "))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tTIME\tSTATE")
	for _, o := range calendar.ResolveSlots(slots, day.Snapshot) {
		id := fmt.Sprint(o.Selection.SlotID)
		if o.Selection.Special {
			id = "special"
		}
		fmt.Fprintf(tw, "%s\t%s - %s\t%s\n", id, o.Start, o.End, o.State)
	}
	return tw.Flush()
}

// book drives a booking draft the way the booking page does and submits it.
func book(ctx context.Context, client *gateway.Client, opts options, today time.Time, logger zerolog.Logger, out io.Writer) error {
	if opts.date == "" {
		return errors.New("book needs -date")
	}
	date, err := parse.Date(opts.date)
	if err != nil {
		return err
	}

	settings, err := client.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	slots, err := client.TimeSlots(ctx)
	if err != nil {
		return fmt.Errorf("load time slots: %w", err)
	}
	validator, err := booking.NewValidator(logger)
	if err != nil {
		return err
	}

	flow := booking.FlowGuest
	if opts.staff {
		flow = booking.FlowStaff
	}
	env := booking.Env{
		Today: today,
		Rules: booking.Rules{
			MinGuests:      settings.MinGuestSize,
			MaxGuests:      settings.MaxGuestSize,
			MaxAdvanceDays: settings.MaxAdvanceBookingDays,
		},
		Slots: slots,
	}
	state := booking.NewState(flow, env.Rules)

	month, err := client.LoadMonth(ctx, date.Year(), date.Month())
	if err != nil {
		return fmt.Errorf("load month: %w", err)
	}
	state = booking.Reduce(state, booking.MonthLoaded{Snapshot: month.Snapshot}, env)
	state = booking.Reduce(state, booking.SelectDate{Date: date}, env)
	if state.Draft.Date == "" {
		return fmt.Errorf("%s cannot be booked: %s", parse.FormatDate(date),
			calendar.ResolveDay(date, month.Snapshot, today, env.Rules.MaxAdvanceDays))
	}

	day, err := client.LoadDay(ctx, date, month.Snapshot)
	if err != nil {
		return fmt.Errorf("load day: %w", err)
	}
	state = booking.Reduce(state, booking.DayLoaded{Snapshot: day.Snapshot}, env)
	switch {
	case opts.special:
		state = booking.Reduce(state, booking.SelectSlot{Selection: calendar.SpecialSelection}, env)
	case opts.slot > 0:
		state = booking.Reduce(state, booking.SelectSlot{Selection: calendar.SlotSelection(opts.slot)}, env)
		if state.Draft.Selection == nil || state.Draft.Selection.SlotID != opts.slot {
			return fmt.Errorf("time slot %d is not available on %s", opts.slot, state.Draft.Date)
		}
	}
	state = booking.Reduce(state, booking.SetGuests{Count: opts.guests}, env)
	state = booking.Reduce(state, booking.SetContact{
		FirstName: opts.firstName, LastName: opts.lastName, Email: opts.email, Phone: opts.phone,
	}, env)
	state = booking.Reduce(state, booking.SetRequests{Text: opts.requests}, env)

	if err := booking.Check(state, env, validator); err != nil {
		return fmt.Errorf("cannot submit: %w", err)
	}

	req := state.Draft.Request()
	create := client.CreateReservation
	if flow == booking.FlowStaff {
		create = client.CreateStaffReservation
	}
	created, err := create(ctx, req)
	if err != nil {
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) {
			return fmt.Errorf("rejected (%s): %s", rejected.Code, rejected.Message)
		}
		return err
	}

	r := created.Reservation
	when := "special hours"
	if r.TimeSlotID != nil {
		when = fmt.Sprintf("slot %d", *r.TimeSlotID)
	}
	fmt.Fprintf(out, "reservation %d %s for %d on %s (%s)\n", r.ID, r.Status, r.GuestCount, r.ReservationDate, when)
	return nil
}
