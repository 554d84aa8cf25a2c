package uuid

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid"
)

// SessionAlphabet lowercase alphanumerics, ids stay readable in paths and logs
const SessionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generator id generator interface
type Generator interface {
	Generate() (string, error)
}

// NanoIDGenerator random ids of Length characters drawn from Alphabet, after Prefix
type NanoIDGenerator struct {
	Prefix   string
	Alphabet string
	Length   int
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator generator for player session ids, eg. "ps_3f9k..."
func NewNanoIDGenerator(length int, prefix string) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &NanoIDGenerator{Prefix: prefix, Alphabet: SessionAlphabet, Length: length}
}

// Generate one id
func (ns *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(ns.Alphabet, ns.Length)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return ns.Prefix + id, nil
}
