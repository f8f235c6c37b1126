// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/models"
)

// ComputeTally decrypts every ballot and aggregates per-question counts.
// Pure with respect to its inputs: the same questions and ballots always
// produce the same tally, which is what makes snapshots reproducible.
//
// Counting rules per question type:
//   - single: one vote for the selected option
//   - multiple: one vote for each selected option
//   - ranking: one vote for the first-ranked option only
//
// Percentages use the total ballot count as the denominator for every
// type, rounded to one decimal place. Options keep their stored order.
// Ballots whose choice cannot be decrypted, or that name an option the
// question does not have, contribute nothing to that question.
func ComputeTally(questions []models.Question, ballots []models.Ballot, dec crypto.ChoiceDecrypter) []models.QuestionTally {
	tallies := make([]models.QuestionTally, 0, len(questions))

	for i, q := range questions {
		counts := make(map[string]int, len(q.Options))
		for _, opt := range q.Options {
			counts[opt] = 0
		}

		for _, b := range ballots {
			if i >= len(b.Envelope.Choices) {
				continue
			}
			choice, err := dec.DecryptChoice(b.Envelope.Choices[i].Encrypted)
			if err != nil {
				slog.Warn("skipping undecryptable choice",
					"election_id", q.ElectionID,
					"question", q.Position,
					"tracking_code", b.TrackingCode,
				)
				continue
			}
			for _, opt := range selectedOptions(q.Type, choice) {
				if _, known := counts[opt]; known {
					counts[opt]++
				}
			}
		}

		options := make([]models.OptionCount, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, models.OptionCount{
				Option:     opt,
				Votes:      counts[opt],
				Percentage: percentage(counts[opt], len(ballots)),
			})
		}

		tallies = append(tallies, models.QuestionTally{
			Question: q.Label,
			Type:     q.Type,
			Options:  options,
		})
	}

	return tallies
}

// selectedOptions maps a decrypted choice to the option labels it counts
// toward, per the question type's counting rule.
func selectedOptions(qtype string, choice crypto.Choice) []string {
	switch qtype {
	case models.QuestionSingle:
		if choice.Single != "" {
			return []string{choice.Single}
		}
	case models.QuestionMultiple:
		if choice.Selected != nil {
			return choice.Selected
		}
		// A single-shaped payload on a multiple question still counts.
		if choice.Single != "" {
			return []string{choice.Single}
		}
	case models.QuestionRanking:
		if first, ok := choice.Ranking[1]; ok {
			return []string{first}
		}
	}
	return nil
}

// percentage of votes out of total ballots, one decimal place.
// Zero ballots yields 0.0 rather than NaN.
func percentage(votes, ballots int) float64 {
	if ballots == 0 {
		return 0.0
	}
	return math.Round(float64(votes)/float64(ballots)*1000) / 10
}

// loadBallots returns every ballot of an election in tracking-code order.
// The fixed ordering keeps tally runs and exports deterministic.
func loadBallots(q querier, electionID string) ([]models.Ballot, error) {
	rows, err := q.Query(`
		SELECT id, election_id, voter_fingerprint, envelope, proof, tracking_code, submitted_at
		FROM ballot
		WHERE election_id = $1
		ORDER BY tracking_code
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ballots []models.Ballot
	for rows.Next() {
		var b models.Ballot
		var envelope, proof string
		if err := rows.Scan(&b.ID, &b.ElectionID, &b.VoterFingerprint, &envelope, &proof, &b.TrackingCode, &b.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(envelope), &b.Envelope); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(proof), &b.Proof); err != nil {
			return nil, err
		}
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}
