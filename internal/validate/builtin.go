package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	FlightBooking = "flight_booking"
	HotelBooking  = "hotel_booking"
)

// Default returns a registry with the built-in categories.
func Default() *Registry {
	r := NewRegistry()
	r.Register(FlightBooking, []string{"flight", "airline", "plane ticket", "fly from", "fly to"},
		Field{Name: "origin", Present: either(matches(originRe), contains("origin"))},
		Field{Name: "destination", Present: either(matches(destinationRe), contains("destination"))},
		Field{Name: "departure_date", Present: datesAtLeast(1)},
		Field{Name: "return_date", Present: returnDate},
		Field{Name: "number_of_passengers", Present: matches(passengersRe)},
		Field{Name: "seat_class", Present: matches(seatClassRe)},
		Field{Name: "flight_type", Present: matches(flightTypeRe)},
	)
	r.Register(HotelBooking, []string{"hotel", "resort", "hostel", "check-in", "check in"},
		Field{Name: "city", Present: either(matches(cityRe), contains("city"))},
		Field{Name: "check_in_date", Present: datesAtLeast(1)},
		Field{Name: "check_out_date", Present: either(datesAtLeast(2), matches(nightsRe))},
		Field{Name: "number_of_guests", Present: matches(guestsRe)},
		Field{Name: "room_type", Present: matches(roomTypeRe)},
	)
	return r
}

var (
	originRe      = regexp.MustCompile(`\bfrom\s+\p{L}+`)
	destinationRe = regexp.MustCompile(`\bto\s+\p{L}+`)
	passengersRe  = regexp.MustCompile(`\b\d+\s*(?:passenger|people|member|adult|traveller|traveler)s?\b`)
	seatClassRe   = regexp.MustCompile(`\b(?:economy|premium economy|business|first[- ]class)\b`)
	flightTypeRe  = regexp.MustCompile(`\b(?:one[- ]way|round[- ]trip|return|multi[- ]city)\b`)
	roundTripRe   = regexp.MustCompile(`\b(?:round[- ]trip|return(?:ing)?|coming back)\b`)

	cityRe     = regexp.MustCompile(`\b(?:in|at|near)\s+\p{L}+`)
	nightsRe   = regexp.MustCompile(`\b\d+\s*nights?\b`)
	guestsRe   = regexp.MustCompile(`\b\d+\s*(?:guest|people|person|adult|member)s?\b`)
	roomTypeRe = regexp.MustCompile(`\b(?:single|double|twin|suite|deluxe|king|queen|standard room|family room)\b`)
)

// Predicates look at the lower-cased instruction first, then the steps text.

func matches(re *regexp.Regexp) func(Evidence) bool {
	return func(ev Evidence) bool {
		return re.MatchString(ev.Lower) || re.MatchString(ev.StepsText)
	}
}

func contains(word string) func(Evidence) bool {
	return func(ev Evidence) bool {
		return strings.Contains(ev.StepsText, word)
	}
}

func either(preds ...func(Evidence) bool) func(Evidence) bool {
	return func(ev Evidence) bool {
		for _, p := range preds {
			if p(ev) {
				return true
			}
		}
		return false
	}
}

func datesAtLeast(n int) func(Evidence) bool {
	return func(ev Evidence) bool {
		return CountDates(ev.Lower, ev.StepsText) >= n
	}
}

// A return date is only needed for round trips, and then both legs need a date.
func returnDate(ev Evidence) bool {
	if !roundTripRe.MatchString(ev.Lower) && !roundTripRe.MatchString(ev.StepsText) {
		return true
	}
	return datesAtLeast(2)(ev)
}

const (
	month   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	weekday = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`
	ordinal = `(?:st|nd|rd|th)?`
)

var (
	dateCandidateRe = regexp.MustCompile(`(?i)\b(?:` +
		`\d{1,2}` + ordinal + `\s+(?:of\s+)?` + month + `(?:,?\s+\d{4})?` +
		`|` + month + `\s+\d{1,2}` + ordinal + `(?:,?\s+\d{4})?` +
		`|\d{4}-\d{1,2}-\d{1,2}` +
		`|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}` +
		`|day after tomorrow|today|tonight|tomorrow` +
		`|(?:next|this|coming)\s+(?:week(?:end)?|` + weekday + `)` +
		`|` + weekday +
		`)\b`)
	relativeDateRe = regexp.MustCompile(`(?i)^(?:day after tomorrow|today|tonight|tomorrow|(?:next|this|coming)\s+\w+|` + weekday + `)$`)
	ordinalRe      = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
)

var dateLayouts = []string{
	"2 January 2006", "2 Jan 2006", "January 2 2006", "Jan 2 2006",
	"2 January", "2 Jan", "January 2", "Jan 2",
	"2006-1-2", "2/1/2006", "2.1.2006", "2-1-2006", "2/1/06",
}

// CountDates returns how many distinct dates the texts mention together.
// A date repeated in several texts, or written two ways ("12 March 2025",
// "March 12"), counts once.
func CountDates(texts ...string) int {
	seen := map[string]bool{}
	for _, text := range texts {
		for _, c := range dateCandidateRe.FindAllString(text, -1) {
			if key, ok := dateKey(c); ok {
				seen[key] = true
			}
		}
	}
	return len(seen)
}

// dateKey identifies the day a candidate names. Years are ignored so a
// date with and without its year match; relative words key on themselves.
func dateKey(candidate string) (string, bool) {
	if relativeDateRe.MatchString(candidate) {
		return strings.ToLower(strings.Join(strings.Fields(candidate), " ")), true
	}
	var words []string
	for _, w := range strings.Fields(strings.ReplaceAll(ordinalRe.ReplaceAllString(candidate, "$1"), ",", " ")) {
		if !strings.EqualFold(w, "of") {
			words = append(words, w)
		}
	}
	s := strings.Join(words, " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("01-02"), true
		}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format("01-02"), true
}
