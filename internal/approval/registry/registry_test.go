package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumpay/pkg/domain"
)

func owners(names ...string) []domain.Principal {
	out := make([]domain.Principal, len(names))
	for i, n := range names {
		out[i] = domain.Principal(n)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name      string
		owners    []domain.Principal
		threshold int
		wantErr   bool
	}{
		{"valid 3-of-2", owners("a", "b", "c"), 2, false},
		{"valid threshold equals count", owners("a", "b"), 2, false},
		{"single owner", owners("a"), 1, true},
		{"empty set", nil, 1, true},
		{"zero threshold", owners("a", "b"), 0, true},
		{"negative threshold", owners("a", "b"), -1, true},
		{"threshold above count", owners("a", "b"), 3, true},
		{"duplicate owner", owners("a", "b", "a"), 2, true},
		{"empty owner entry", owners("a", ""), 1, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := New(tc.owners, tc.threshold)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.threshold, reg.Threshold())
			assert.Equal(t, len(tc.owners), reg.OwnerCount())
		})
	}
}

func TestIsOwner(t *testing.T) {
	reg, err := New(owners("alice", "bob", "carol"), 2)
	require.NoError(t, err)

	for _, o := range []string{"alice", "bob", "carol"} {
		assert.True(t, reg.IsOwner(domain.Principal(o)), o)
	}
	assert.False(t, reg.IsOwner("mallory"))
	assert.False(t, reg.IsOwner(""))
}

func TestOwnersReturnsCopy(t *testing.T) {
	reg, err := New(owners("alice", "bob"), 1)
	require.NoError(t, err)

	got := reg.Owners()
	got[0] = "mallory"

	assert.True(t, reg.IsOwner("alice"))
	assert.False(t, reg.IsOwner("mallory"))
	assert.Equal(t, owners("alice", "bob"), reg.Owners())
}
