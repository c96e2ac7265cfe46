package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/planwright/internal/plan"
)

func flightPlan() *plan.Plan {
	return &plan.Plan{
		Task: "book_flight",
		Steps: []plan.Step{
			{Action: "goto", Target: "<website>"},
			{Action: "type", Target: "from field", Value: "Delhi"},
			{Action: "type", Target: "to field", Value: "Mumbai"},
			{Action: "click", Target: "search button"},
		},
	}
}

func TestFlightScenario(t *testing.T) {
	r := Default()
	instruction := "Book a flight from Delhi to Mumbai on 12 March 2025"

	require.Equal(t, FlightBooking, r.InferCategory(instruction))
	assert.Equal(t,
		[]string{"number_of_passengers", "seat_class", "flight_type"},
		r.Missing(FlightBooking, instruction, flightPlan()))
}

func TestRoundTripNeedsReturnDate(t *testing.T) {
	r := Default()

	missing := r.Missing(FlightBooking, "Book a round-trip flight from Delhi to Goa on 12 March 2025 for 2 passengers in economy", flightPlan())
	assert.Equal(t, []string{"return_date"}, missing)

	missing = r.Missing(FlightBooking, "Book a round-trip flight from Delhi to Goa on 12 March 2025 returning 20 March 2025 for 2 passengers in economy", flightPlan())
	assert.Empty(t, missing)
}

func TestPassengerCountNeverFlagged(t *testing.T) {
	r := Default()
	for _, instruction := range []string{
		"Book a flight for 4 passengers",
		"flight for 4passengers",
		"Book 10 people on a flight to Paris",
		"book a flight, 3 members, business class",
		"4 Passengers from Pune",
	} {
		assert.NotContains(t, r.Missing(FlightBooking, instruction, &plan.Plan{}), "number_of_passengers", instruction)
	}
}

func TestEvidenceFromSteps(t *testing.T) {
	r := Default()
	p := flightPlan()
	p.Steps = append(p.Steps,
		plan.Step{Action: "select", Target: "passengers", Value: "2 adults"},
		plan.Step{Action: "click", Target: "One-Way"},
		plan.Step{Action: "select", Target: "class", Value: "Economy"},
	)
	assert.Empty(t, r.Missing(FlightBooking, "Book a flight from Delhi to Mumbai on 12 March 2025", p))
}

func TestHotelBooking(t *testing.T) {
	r := Default()
	instruction := "Book a hotel in Goa from 3rd of May to May 6, 2025 for 2 guests, deluxe room"
	require.Equal(t, HotelBooking, r.InferCategory(instruction))
	assert.Empty(t, r.Missing(HotelBooking, instruction, nil))

	assert.Equal(t,
		[]string{"check_in_date", "check_out_date", "number_of_guests", "room_type"},
		r.Missing(HotelBooking, "Find me a hotel in Goa", nil))
}

func TestUnknownCategory(t *testing.T) {
	r := Default()
	assert.Equal(t, "", r.InferCategory("Login to instagram"))
	assert.Nil(t, r.Missing("", "Login to instagram", nil))
	assert.Nil(t, r.Missing("grocery_order", "buy milk", nil))
}

func TestRegisterCustomCategory(t *testing.T) {
	r := NewRegistry()
	r.Register("music", []string{"play"}, Field{
		Name:    "song",
		Present: func(ev Evidence) bool { return ev.StepsText != "" },
	})

	assert.Equal(t, "music", r.InferCategory("Play something"))
	assert.Equal(t, []string{"song"}, r.Missing("music", "play", &plan.Plan{}))
	assert.Nil(t, r.Missing("music", "play", &plan.Plan{Steps: []plan.Step{{Action: "search", Target: "search box", Value: "Believer"}}}))
}

func TestCountDates(t *testing.T) {
	cases := map[string]int{
		"on 12 March 2025":                      1,
		"leaving 3rd of may, back may 10, 2025": 2,
		"tomorrow or next friday":               2,
		"2025-03-12 until 15/03/2025":           2,
		"marketing 4 people":                    0,
		"31 February 2025":                      0,
		"12 March 2025, i.e. March 12th":        1,
	}
	for text, want := range cases {
		assert.Equal(t, want, CountDates(text), text)
	}
}

func TestRepeatedDateCountsOnce(t *testing.T) {
	assert.Equal(t, 1, CountDates("on 12 March 2025", "date field 12 march 2025"))
	assert.Equal(t, 2, CountDates("on 12 March 2025", "return 20 march"))

	r := Default()
	echo := &plan.Plan{Steps: []plan.Step{
		{Action: "goto", Target: "<website>"},
		{Action: "type", Target: "date field", Value: "12 March 2025"},
	}}

	hotel := "Book a hotel in Goa on 12 March 2025 for 2 guests, deluxe room"
	assert.Equal(t, []string{"check_out_date"}, r.Missing(HotelBooking, hotel, nil))
	assert.Equal(t, []string{"check_out_date"}, r.Missing(HotelBooking, hotel, echo))

	flight := "Book a round-trip flight from Delhi to Goa on 12 March 2025 for 2 passengers in economy"
	assert.Equal(t, []string{"return_date"}, r.Missing(FlightBooking, flight, echo))
}
