package intent

import "strings"

// Intent is a coarse category of an inbound question
type Intent string

const (
	SeatLookup      Intent = "seat_lookup"
	WeddingLocation Intent = "wedding_location"
	WeddingTime     Intent = "wedding_time"
	Smalltalk       Intent = "smalltalk"
)

// priority is the order Primary picks from when several intents match.
var priority = []Intent{SeatLookup, WeddingLocation, WeddingTime, Smalltalk}

var keywords = map[Intent][]string{
	SeatLookup:      {"座", "位", "桌", "找", "坐"},
	WeddingLocation: {"地點", "哪裡", "地址", "在哪", "怎麼去", "交通"},
	WeddingTime:     {"時間", "時候", "幾點", "日期", "哪天"},
}

// Set holds every intent a message matched
type Set map[Intent]bool

// Has reports whether i is in the set
func (s Set) Has(i Intent) bool {
	return s[i]
}

// Primary returns the highest priority intent in the set
func (s Set) Primary() Intent {
	for _, i := range priority {
		if s[i] {
			return i
		}
	}
	return Smalltalk
}

// Classify matches text against the keyword table. A message can match more
// than one intent; a message matching none is smalltalk.
func Classify(text string) Set {
	set := Set{}
	for _, i := range priority {
		if containsAny(text, keywords[i]...) {
			set[i] = true
		}
	}
	if len(set) == 0 {
		set[Smalltalk] = true
	}
	return set
}

// containsAny checks if the text contains any of the given keywords
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
