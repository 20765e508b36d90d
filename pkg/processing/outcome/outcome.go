package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/trainrace/pkg/model"
)

// Entry is the finish time of one train in seconds.
type Entry struct {
	Train model.TrainID `json:"train"`
	Time  float64       `json:"time"`
}

type Result struct {
	Tie    bool  `json:"tie"`
	Winner Entry `json:"winner"`
	Loser  Entry `json:"loser"`
	// Margin is |t1-t2| rounded to 2 decimals.
	Margin decimal.Decimal `json:"margin"`
	// Percent is margin/loserTime*100 rounded to 1 decimal.
	Percent decimal.Decimal `json:"percent"`
}

// Compare reports the winner of two finish times. Equal times are a tie;
// otherwise the smaller time wins.
func Compare(a, b Entry) Result {
	da := decimal.NewFromFloat(a.Time)
	db := decimal.NewFromFloat(b.Time)
	if da.Equal(db) {
		return Result{Tie: true, Winner: a, Loser: b, Margin: decimal.Zero, Percent: decimal.Zero}
	}
	winner, loser := a, b
	dw, dl := da, db
	if db.LessThan(da) {
		winner, loser = b, a
		dw, dl = db, da
	}
	margin := dl.Sub(dw)
	percent := decimal.Zero
	if !dl.IsZero() {
		percent = margin.Div(dl).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return Result{
		Winner:  winner,
		Loser:   loser,
		Margin:  margin.Round(2),
		Percent: percent,
	}
}

func (r Result) String() string {
	if r.Tie {
		return fmt.Sprintf("tie at %ss", decimal.NewFromFloat(r.Winner.Time).StringFixed(2))
	}
	return fmt.Sprintf("%s wins by %ss (%s%% faster)",
		r.Winner.Train, r.Margin.StringFixed(2), r.Percent.StringFixed(1))
}

// FromFrame compares the finish times contained in a frame. It returns false
// while any train of the frame has not finished.
func FromFrame(f *model.Frame) (Result, bool) {
	if len(f.Trains) != 2 {
		return Result{}, false
	}
	var entries [2]Entry
	for i := range f.Trains {
		if f.Trains[i].FinishTime == nil {
			return Result{}, false
		}
		entries[i] = Entry{Train: f.Trains[i].Train, Time: *f.Trains[i].FinishTime}
	}
	return Compare(entries[0], entries[1]), true
}
