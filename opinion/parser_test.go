package opinion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const appealsOpinion = `IN THE COURT OF APPEALS OF THE STATE OF WASHINGTON

STATE OF WASHINGTON,          )     No. 83895-4-I
                              )
               Respondent,    )     DIVISION ONE
                              )
          v.                  )     UNPUBLISHED OPINION
                              )
JOHN ALLEN DOE,               )
                              )
               Appellant.     )

FILED: March 14, 2024

SMITH, J. - John Doe appeals his conviction entered in the Superior Court for King County.
The trial court admitted hearsay testimony over objection.

We reverse and remand for a new trial.
`

const supremeOpinion = `THIS OPINION WAS FILED FOR RECORD
IN THE SUPREME COURT OF THE STATE OF WASHINGTON

JANE ROE,
      Petitioner,
   v.
CITY OF SEATTLE,
      Respondent.

No. 99123-4

EN BANC

Filed Jan. 5, 2023

The city's ordinance is valid. The decision of the Court of Appeals is affirmed.
`

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Opinion
	}{
		{
			name: "court of appeals",
			text: appealsOpinion,
			want: Opinion{
				FileID:        "83895-4-I",
				Title:         "STATE OF WASHINGTON v. JOHN ALLEN DOE",
				Court:         "Court of Appeals, Division I",
				Division:      "I",
				Filed:         time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
				County:        "King",
				Outcome:       OutcomeReversed,
				OutcomeDetail: "reversed and remanded",
			},
		},
		{
			name: "supreme court",
			text: supremeOpinion,
			want: Opinion{
				FileID:  "99123-4",
				Title:   "JANE ROE v. CITY OF SEATTLE",
				Court:   "Supreme Court",
				Filed:   time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC),
				EnBanc:  true,
				Outcome: OutcomeAffirmed,
			},
		},
		{
			name: "nothing recognizable",
			text: "Order granting extension of time.",
			want: Opinion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestParse_Outcomes(t *testing.T) {
	tests := []struct {
		footer  string
		outcome string
		detail  string
		winner  string
	}{
		{"Affirmed in part, reversed in part.", OutcomeAffirmed, "affirmed in part, reversed in part", RoleRespondent},
		{"Reversed in part, affirmed in part.", OutcomeReversed, "reversed in part, affirmed in part", RoleAppellant},
		{"We affirm and remand for resentencing.", OutcomeAffirmed, "affirmed and remanded", RoleRespondent},
		{"We remand for further proceedings.", OutcomeRemanded, "", RoleAppellant},
		{"We dismiss the appeal as moot.", OutcomeDismissed, "", RoleRespondent},
		{"The judgment is hereby affirmed.", OutcomeAffirmed, "", RoleRespondent},
		{"The petition is denied.", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.footer, func(t *testing.T) {
			op := Parse(tt.footer)
			assert.Equal(t, tt.outcome, op.Outcome)
			assert.Equal(t, tt.detail, op.OutcomeDetail)
			assert.Equal(t, tt.winner, op.WinnerLegalRole())
		})
	}
}

func TestParse_Divisions(t *testing.T) {
	for header, want := range map[string]string{
		"COURT OF APPEALS DIVISION TWO":  "Court of Appeals, Division II",
		"Court of Appeals, Division III": "Court of Appeals, Division III",
		"COURT OF APPEALS, DIVISION 1":   "Court of Appeals, Division I",
		"COURT OF APPEALS OF WASHINGTON": "Court of Appeals",
	} {
		assert.Equal(t, want, Parse(header).Court, header)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"M\nONTOYA-LEWIS, J.", "MONTOYA-LEWIS, J."},
		{"SMITH-LE\nWIS", "SMITH-LEWIS"},
		{"cross-\nappeal", "cross-appeal"},
		{"OF WASHINGTON\nSTATE OF WASHINGTON", "OF WASHINGTON\nSTATE OF WASHINGTON"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), tt.in)
	}
}

func TestDocketFromName(t *testing.T) {
	assert.Equal(t, "83895-4-I", DocketFromName("83895-4-I.pdf"))
	assert.Equal(t, "99123-4", DocketFromName("opinion 99123-4 final.pdf"))
	assert.Empty(t, DocketFromName("opinion_934.pdf"))
}
