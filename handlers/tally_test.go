// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"reflect"
	"testing"

	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/models"
)

func singleQuestion(label string, options ...string) models.Question {
	return models.Question{Label: label, Type: models.QuestionSingle, Options: options}
}

func ballotOf(ciphertexts ...string) models.Ballot {
	var env models.Envelope
	for _, ct := range ciphertexts {
		env.Choices = append(env.Choices, models.EncryptedChoice{Encrypted: ct})
	}
	return models.Ballot{Envelope: env}
}

func TestComputeTallySingle(t *testing.T) {
	questions := []models.Question{singleQuestion("Chair", "Alice", "Bob")}

	var ballots []models.Ballot
	for i := 0; i < 6; i++ {
		ballots = append(ballots, ballotOf(crypto.EncodeSingle("Alice")))
	}
	for i := 0; i < 4; i++ {
		ballots = append(ballots, ballotOf(crypto.EncodeSingle("Bob")))
	}

	tally := ComputeTally(questions, ballots, crypto.NewBase64Decrypter())

	expected := []models.QuestionTally{
		{
			Question: "Chair",
			Type:     models.QuestionSingle,
			Options: []models.OptionCount{
				{Option: "Alice", Votes: 6, Percentage: 60.0},
				{Option: "Bob", Votes: 4, Percentage: 40.0},
			},
		},
	}

	if !reflect.DeepEqual(tally, expected) {
		t.Errorf("Tally mismatch:\n got %+v\nwant %+v", tally, expected)
	}
}

func TestComputeTallyMultiple(t *testing.T) {
	questions := []models.Question{
		{Label: "Committees", Type: models.QuestionMultiple, Options: []string{"Budget", "Outreach"}},
	}

	// Three ballots: {Budget, Outreach}, {Budget}, {} — percentages are
	// per-ballot, so they need not sum to 100
	ballots := []models.Ballot{
		ballotOf(crypto.EncodeMultiple([]string{"Budget", "Outreach"})),
		ballotOf(crypto.EncodeMultiple([]string{"Budget"})),
		ballotOf(crypto.EncodeMultiple([]string{})),
	}

	tally := ComputeTally(questions, ballots, crypto.NewBase64Decrypter())

	opts := tally[0].Options
	if opts[0].Votes != 2 || opts[0].Percentage != 66.7 {
		t.Errorf("Budget: expected 2 votes at 66.7%%, got %d at %.1f%%", opts[0].Votes, opts[0].Percentage)
	}
	if opts[1].Votes != 1 || opts[1].Percentage != 33.3 {
		t.Errorf("Outreach: expected 1 vote at 33.3%%, got %d at %.1f%%", opts[1].Votes, opts[1].Percentage)
	}
}

func TestComputeTallyRankingCountsFirstChoice(t *testing.T) {
	questions := []models.Question{
		{Label: "Venue", Type: models.QuestionRanking, Options: []string{"Paris", "Lisbon", "Oslo"}},
	}

	// Lower ranks beyond the first never count
	ballots := []models.Ballot{
		ballotOf(crypto.EncodeRanking([]string{"Paris", "Lisbon", "Oslo"})),
		ballotOf(crypto.EncodeRanking([]string{"Paris", "Oslo", "Lisbon"})),
		ballotOf(crypto.EncodeRanking([]string{"Lisbon", "Paris", "Oslo"})),
	}

	tally := ComputeTally(questions, ballots, crypto.NewBase64Decrypter())

	opts := tally[0].Options
	if opts[0].Option != "Paris" || opts[0].Votes != 2 || opts[0].Percentage != 66.7 {
		t.Errorf("Paris: expected 2 first-choice votes at 66.7%%, got %+v", opts[0])
	}
	if opts[1].Option != "Lisbon" || opts[1].Votes != 1 || opts[1].Percentage != 33.3 {
		t.Errorf("Lisbon: expected 1 first-choice vote at 33.3%%, got %+v", opts[1])
	}
	if opts[2].Option != "Oslo" || opts[2].Votes != 0 || opts[2].Percentage != 0.0 {
		t.Errorf("Oslo: expected 0 first-choice votes, got %+v", opts[2])
	}
}

func TestComputeTallyZeroBallots(t *testing.T) {
	questions := []models.Question{singleQuestion("Chair", "Alice", "Bob")}

	tally := ComputeTally(questions, nil, crypto.NewBase64Decrypter())

	for _, opt := range tally[0].Options {
		if opt.Votes != 0 {
			t.Errorf("Expected 0 votes for %s, got %d", opt.Option, opt.Votes)
		}
		if opt.Percentage != 0.0 {
			t.Errorf("Expected 0.0%% for %s, got %f", opt.Option, opt.Percentage)
		}
	}
}

func TestComputeTallyIgnoresUnknownOption(t *testing.T) {
	questions := []models.Question{singleQuestion("Chair", "Alice", "Bob")}

	ballots := []models.Ballot{
		ballotOf(crypto.EncodeSingle("Alice")),
		ballotOf(crypto.EncodeSingle("Mallory")), // not on the ballot
	}

	tally := ComputeTally(questions, ballots, crypto.NewBase64Decrypter())

	if tally[0].Options[0].Votes != 1 {
		t.Errorf("Expected 1 vote for Alice, got %d", tally[0].Options[0].Votes)
	}
	if tally[0].Options[1].Votes != 0 {
		t.Errorf("Expected 0 votes for Bob, got %d", tally[0].Options[1].Votes)
	}
	// Write-ins still count toward the denominator
	if tally[0].Options[0].Percentage != 50.0 {
		t.Errorf("Expected 50.0%%, got %f", tally[0].Options[0].Percentage)
	}
}

func TestComputeTallySkipsShortEnvelope(t *testing.T) {
	questions := []models.Question{
		singleQuestion("Chair", "Alice", "Bob"),
		singleQuestion("Treasurer", "Carol", "Dan"),
	}

	// One well-formed ballot and one missing its second choice
	ballots := []models.Ballot{
		ballotOf(crypto.EncodeSingle("Alice"), crypto.EncodeSingle("Carol")),
		ballotOf(crypto.EncodeSingle("Bob")),
	}

	tally := ComputeTally(questions, ballots, crypto.NewBase64Decrypter())

	if tally[0].Options[0].Votes != 1 || tally[0].Options[1].Votes != 1 {
		t.Errorf("First question: expected 1/1, got %+v", tally[0].Options)
	}
	if tally[1].Options[0].Votes != 1 || tally[1].Options[1].Votes != 0 {
		t.Errorf("Second question: expected 1/0, got %+v", tally[1].Options)
	}
}

func TestComputeTallyDeterministic(t *testing.T) {
	questions := []models.Question{
		singleQuestion("Chair", "Alice", "Bob"),
		{Label: "Venue", Type: models.QuestionRanking, Options: []string{"Paris", "Lisbon", "Oslo"}},
	}
	ballots := []models.Ballot{
		ballotOf(crypto.EncodeSingle("Alice"), crypto.EncodeRanking([]string{"Oslo", "Paris", "Lisbon"})),
		ballotOf(crypto.EncodeSingle("Bob"), crypto.EncodeRanking([]string{"Paris", "Lisbon", "Oslo"})),
	}

	dec := crypto.NewBase64Decrypter()
	first := ComputeTally(questions, ballots, dec)
	for i := 0; i < 10; i++ {
		if again := ComputeTally(questions, ballots, dec); !reflect.DeepEqual(first, again) {
			t.Fatalf("Tally differed on rerun %d:\n got %+v\nwant %+v", i, again, first)
		}
	}
}
