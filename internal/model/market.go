package model

import "time"

// Tick is a single price update for one instrument.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Quote is a recent price observation kept newest-first per instrument.
type Quote struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Seed is an initial instrument price loaded at startup.
type Seed struct {
	Symbol string  `yaml:"symbol"`
	Price  float64 `yaml:"price"`
}

// InstrumentSnapshot is an immutable copy of an instrument's state.
type InstrumentSnapshot struct {
	Symbol       string
	CurrentPrice float64
	History      []float64 // oldest first
	Quotes       []Quote   // newest first
}
