package domain

import (
	"reflect"
	"testing"
)

func TestResolveTrick(t *testing.T) {
	tests := []struct {
		name    string
		plays   []Play
		want    Team
		wantIdx int
	}{
		{
			name:    "higher card wins",
			plays:   []Play{{"a", Team1, Card{Cups, 4}}, {"b", Team2, Card{Swords, 1}}},
			want:    Team2,
			wantIdx: 1,
		},
		{
			name:    "equal power across teams is parda",
			plays:   []Play{{"a", Team1, Card{Cups, 3}}, {"b", Team2, Card{Coins, 3}}},
			want:    TeamNone,
			wantIdx: -1,
		},
		{
			name: "equal power within a team is not parda",
			plays: []Play{
				{"a", Team1, Card{Cups, 3}}, {"b", Team2, Card{Cups, 12}},
				{"c", Team1, Card{Coins, 3}}, {"d", Team2, Card{Clubs, 4}},
			},
			want:    Team1,
			wantIdx: 0,
		},
		{name: "empty", plays: nil, want: TeamNone, wantIdx: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, idx := ResolveTrick(tt.plays)
			if got != tt.want || idx != tt.wantIdx {
				t.Fatalf("ResolveTrick() = %v, %d; want %v, %d", got, idx, tt.want, tt.wantIdx)
			}
		})
	}
}

func TestAttributeTricks(t *testing.T) {
	n := TeamNone
	tests := []struct {
		in, want []Team
	}{
		{[]Team{Team1, n}, []Team{Team1, Team1}},
		{[]Team{n, Team2}, []Team{Team2, Team2}},
		{[]Team{n, n, Team1}, []Team{Team1, Team1, Team1}},
		{[]Team{Team1, Team2, n}, []Team{Team1, Team2, Team2}},
		{[]Team{n, n, n}, []Team{n, n, n}},
	}
	for _, tt := range tests {
		if got := AttributeTricks(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("AttributeTricks(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHandWinner(t *testing.T) {
	n := TeamNone
	tests := []struct {
		name     string
		results  []Team
		mano     Team
		want     Team
		wantDone bool
	}{
		{"one trick is not enough", []Team{Team1}, Team1, n, false},
		{"two straight wins", []Team{Team2, Team2}, Team1, Team2, true},
		{"split goes to third", []Team{Team1, Team2}, Team1, n, false},
		{"third trick decides", []Team{Team1, Team2, Team2}, Team1, Team2, true},
		{"parda after a win", []Team{Team1, n}, Team2, Team1, true},
		{"first parda broken later", []Team{n, Team2}, Team1, Team2, true},
		{"two pardas wait", []Team{n, n}, Team1, n, false},
		{"three pardas go to mano", []Team{n, n, n}, Team2, Team2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, done := HandWinner(tt.results, tt.mano)
			if got != tt.want || done != tt.wantDone {
				t.Fatalf("HandWinner() = %v, %v; want %v, %v", got, done, tt.want, tt.wantDone)
			}
		})
	}
}
