package policy_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledenbeheer/internal/domain/policy"
)

// TestPolicyValidate tests the settings validation rules.
func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *policy.Policy)
		wantField string
	}{
		{"default is valid", func(p *policy.Policy) {}, ""},
		{"missing from email", func(p *policy.Policy) { p.FromEmail = " " }, "from_email"},
		{"malformed from email", func(p *policy.Policy) { p.FromEmail = "not-an-email" }, "from_email"},
		{"display name in from email", func(p *policy.Policy) { p.FromEmail = "VOG <vog@example.org>" }, "from_email"},
		{"header injection in name", func(p *policy.Policy) { p.FromName = "VOG\r\nBcc: x@example.org" }, "from_name"},
		{"empty new template", func(p *policy.Policy) { p.TemplateNew = "" }, "template_new"},
		{"date placeholder in new template", func(p *policy.Policy) { p.TemplateNew = "Hoi {first_name}, sinds {previous_vog_date}" }, "template_new"},
		{"unknown placeholder in renewal", func(p *policy.Policy) { p.TemplateRenewal = "Hoi {voornaam}" }, "template_renewal"},
		{"non-positive committee", func(p *policy.Policy) { p.ExemptCommittees = []int64{3, 0} }, "exempt_commissies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policy.Default()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var pe *policy.PolicyError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantField, pe.Field)
		})
	}
}

// TestPlaceholders lists distinct names in order.
func TestPlaceholders(t *testing.T) {
	got := policy.Placeholders("{first_name} {previous_vog_date} {first_name} {Upper}")
	assert.Equal(t, []string{"first_name", "previous_vog_date"}, got)
}

// TestNormalizedAndSender tests normalization of the exempt list and the From header.
func TestNormalizedAndSender(t *testing.T) {
	p := policy.Policy{FromEmail: " vog@example.org ", FromName: "Vrijwilligers", ExemptCommittees: []int64{7, 2, 7, 5}}
	n := p.Normalized()
	assert.Equal(t, []int64{2, 5, 7}, n.ExemptCommittees)
	assert.Equal(t, []int64{7, 2, 7, 5}, p.ExemptCommittees, "original untouched")
	assert.Equal(t, `"Vrijwilligers" <vog@example.org>`, n.Sender())

	n.FromName = ""
	assert.Equal(t, "vog@example.org", n.Sender())

	assert.False(t, p.ExemptListChanged(policy.Policy{ExemptCommittees: []int64{2, 5, 7}}))
	assert.True(t, p.ExemptListChanged(policy.Policy{ExemptCommittees: []int64{2, 5}}))
}

type fakeCommitter struct {
	mu    sync.Mutex
	err   error
	saved []policy.Policy
}

func (f *fakeCommitter) Save(_ context.Context, p policy.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

// TestHolderSave_Applied tests the happy path of the two phase save.
func TestHolderSave_Applied(t *testing.T) {
	h := policy.NewHolder(policy.Default())
	store := &fakeCommitter{}

	next := policy.Default()
	next.ExemptCommittees = []int64{9, 4}
	ev, err := h.Save(context.Background(), next, store)
	require.NoError(t, err)

	assert.Equal(t, policy.EventApplied, ev.Kind)
	assert.Empty(t, ev.Previous.ExemptCommittees)
	assert.Equal(t, []int64{4, 9}, ev.Current.ExemptCommittees)
	assert.Equal(t, []int64{4, 9}, h.Snapshot().ExemptCommittees)
	require.Len(t, store.saved, 1)
}

// TestHolderSave_Reverted tests that a failed commit restores the previous policy.
func TestHolderSave_Reverted(t *testing.T) {
	h := policy.NewHolder(policy.Default())
	boom := errors.New("disk full")
	store := &fakeCommitter{err: boom}

	next := policy.Default()
	next.FromName = "Iemand anders"
	ev, err := h.Save(context.Background(), next, store)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, policy.EventReverted, ev.Kind)
	assert.ErrorIs(t, ev.Err, boom)
	assert.Equal(t, policy.Default().FromName, h.Snapshot().FromName)
}

// TestHolderSave_Invalid tests that validation errors never touch the holder or store.
func TestHolderSave_Invalid(t *testing.T) {
	h := policy.NewHolder(policy.Default())
	store := &fakeCommitter{}

	bad := policy.Default()
	bad.FromEmail = "nope"
	ev, err := h.Save(context.Background(), bad, store)

	var pe *policy.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, ev.Kind)
	assert.Empty(t, store.saved)
	assert.Equal(t, policy.Default().FromEmail, h.Snapshot().FromEmail)
}

// TestHolderSnapshotIsolation checks snapshots share no memory with the holder.
func TestHolderSnapshotIsolation(t *testing.T) {
	p := policy.Default()
	p.ExemptCommittees = []int64{1, 2}
	h := policy.NewHolder(p)

	snap := h.Snapshot()
	snap.ExemptCommittees[0] = 99
	assert.Equal(t, []int64{1, 2}, h.Snapshot().ExemptCommittees)
}

// TestHolderConcurrentSaves is run with -race to check saves are serialised.
func TestHolderConcurrentSaves(t *testing.T) {
	h := policy.NewHolder(policy.Default())
	store := &fakeCommitter{}

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			p := policy.Default()
			p.ExemptCommittees = []int64{id}
			_, _ = h.Save(context.Background(), p, store)
			_ = h.Snapshot()
		}(int64(i))
	}
	wg.Wait()

	assert.Len(t, store.saved, 20)
	last := store.saved[len(store.saved)-1]
	assert.Equal(t, last.ExemptCommittees, h.Snapshot().ExemptCommittees)
}
