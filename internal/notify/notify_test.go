package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	t.Run("drops blank and duplicate recipients", func(t *testing.T) {
		msg, err := Prepare(Message{To: []string{" a@b.ma ", "", "A@b.ma", "c@d.ma"}, Subject: "s", Body: "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a@b.ma", "c@d.ma"}, msg.To)
		assert.NotEmpty(t, msg.ID)
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := Prepare(Message{To: []string{" "}, Subject: "s"})
		assert.ErrorIs(t, err, ErrNoRecipients)
	})

	t.Run("explicit subject wins over template subject", func(t *testing.T) {
		msg, err := Prepare(Message{
			To:       []string{"p@x.ma"},
			Subject:  "Custom",
			Template: TplConsentRevoked,
			Data:     map[string]interface{}{"ConsentType": "Photo", "StudentName": "Amine", "Reason": "x"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Custom", msg.Subject)
		assert.Contains(t, msg.Body, "Amine")
	})
}

func TestRender(t *testing.T) {
	t.Run("fee bill lists items", func(t *testing.T) {
		subject, body, err := Render(TplFeeBill, map[string]interface{}{
			"BillID":      12,
			"Total":       5800.0,
			"Currency":    "MAD",
			"StudentName": "Salma Idrissi",
			"DueDate":     model.NewDate(2025, 10, 31),
			"Items": []model.FeeItem{
				{FeeType: "Tuition", Amount: 5000},
				{FeeType: "Transport", Amount: 800},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Facture de frais scolaires n°12", subject)
		assert.Contains(t, body, "5800.00 MAD")
		assert.Contains(t, body, "- Tuition : 5000.00 MAD")
		assert.Contains(t, body, "- Transport : 800.00 MAD")
		assert.Contains(t, body, "2025-10-31")
	})

	t.Run("budget alert formats percentage", func(t *testing.T) {
		subject, _, err := Render(TplBudgetAlert, map[string]interface{}{
			"Level": "Critical", "Percentage": 92.5, "Line": "Fournitures", "BudgetName": "2025",
			"Allocated": 1000.0, "Consumed": 925.0, "Remaining": 75.0,
		})
		require.NoError(t, err)
		assert.Equal(t, "[Critical] Ligne budgétaire consommée à 92.5%", subject)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, _, err := Render("nope", nil)
		assert.Error(t, err)
	})

	t.Run("every template parses with empty data", func(t *testing.T) {
		for name := range sources {
			_, ok := parsed[name]
			assert.True(t, ok, name)
		}
	})
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	err := m.Send(context.Background(), Message{To: []string{"dir@ecole.ma"}, Subject: "Hello", Body: "World"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"subject":"Hello"`)
	assert.Contains(t, buf.String(), "dir@ecole.ma")

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipients)
}
