package interop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vogon/internal/core"
)

const sampleCSV = `transaction,date,description,type,tags,account,currency,amount
1,2024-01-05,Groceries,expense,food;home,Cash,EUR,-12.50
2,2024-01-06,To savings,transfer,,Cash,EUR,-100
2,2024-01-06,ignored,expense,,Savings,EUR,100
3,2024-01-07,Flight,expense,travel,Card,usd,"-250,99"
`

func TestCSVImporter_Import(t *testing.T) {
	imp := &CSVImporter{Path: "sample.csv", Reader: strings.NewReader(sampleCSV)}
	d, err := imp.Import(context.Background())
	require.NoError(t, err)

	require.Len(t, d.Accounts, 3)
	assert.Equal(t, "Cash", d.Accounts[0].Name)
	assert.Equal(t, core.Currency("USD"), d.Accounts[2].Currency)
	assert.True(t, d.Accounts[0].IncludeInTotal)

	require.Len(t, d.Transactions, 3)
	assert.Equal(t, []string{"food", "home"}, d.Transactions[0].Tags)
	assert.Equal(t, core.Transfer, d.Transactions[1].Type)
	assert.Equal(t, "To savings", d.Transactions[1].Description, "first row of a transaction wins")
	assert.Empty(t, d.Transactions[1].Tags)

	require.Len(t, d.Components, 4)
	assert.Equal(t, core.Amount(-1250), d.Components[0].Amount)
	assert.Equal(t, core.Amount(-25099), d.Components[3].Amount)
	assert.Equal(t, d.Transactions[1].ID, d.Components[2].TransactionID)
}

func TestCSVImporter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		logical bool
		line    int
	}{
		{
			name:  "missing column",
			input: "transaction,date,description,type,tags,account,currency\n",
			line:  1,
		},
		{
			name:  "bad date",
			input: "transaction,date,description,type,tags,account,currency,amount\n1,05/01/2024,x,expense,,Cash,EUR,1\n",
			line:  2,
		},
		{
			name:  "bad amount",
			input: "transaction,date,description,type,tags,account,currency,amount\n1,2024-01-05,x,expense,,Cash,EUR,abc\n",
			line:  2,
		},
		{
			name:  "field count",
			input: "transaction,date,description,type,tags,account,currency,amount\n1,2024-01-05,x\n",
			line:  2,
		},
		{
			name:    "unknown currency",
			input:   "transaction,date,description,type,tags,account,currency,amount\n1,2024-01-05,x,expense,,Cash,QQQ,1\n",
			logical: true,
		},
		{
			name: "account with two currencies",
			input: "transaction,date,description,type,tags,account,currency,amount\n" +
				"1,2024-01-05,x,expense,,Cash,EUR,1\n2,2024-01-05,y,expense,,Cash,USD,1\n",
			logical: true,
		},
		{
			name: "unbalanced transfer",
			input: "transaction,date,description,type,tags,account,currency,amount\n" +
				"1,2024-01-05,x,transfer,,Cash,EUR,-10\n1,2024-01-05,x,transfer,,Bank,EUR,9\n",
			logical: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &CSVImporter{Path: "in.csv", Reader: strings.NewReader(tt.input)}
			_, err := imp.Import(context.Background())
			require.Error(t, err)

			if tt.logical {
				var le *LogicalError
				assert.True(t, errors.As(err, &le), "want LogicalError, got %T: %v", err, err)
				return
			}
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %T: %v", err, err)
			assert.Equal(t, "in.csv", fe.Source)
			assert.Equal(t, tt.line, fe.Line)
		})
	}
}

func TestCSVImporter_MixedCurrencyTransferIsAccepted(t *testing.T) {
	input := "transaction,date,description,type,tags,account,currency,amount\n" +
		"1,2024-01-05,fx,transfer,,Cash,EUR,-10\n1,2024-01-05,fx,transfer,,Card,USD,11\n"
	imp := &CSVImporter{Reader: strings.NewReader(input)}
	d, err := imp.Import(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Components, 2)
}

func TestCSVImporter_MissingFile(t *testing.T) {
	_, err := NewCSVImporter("/does/not/exist.csv").Import(context.Background())
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/does/not/exist.csv", fe.Source)
}
