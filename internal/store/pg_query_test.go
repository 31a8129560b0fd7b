package store

import (
	"testing"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_buildOrderWhere(t *testing.T) {
	// given
	conds := []Condition{
		Eq(FieldStatus, StatusReady),
		Gte(FieldTotal, dec("50")),
		AnyOf(IContains(FieldID, "A_b"), IContains(FieldCustomerName, "A_b")),
	}

	// when
	where, args, err := buildOrderWhere(conds)

	// then
	require.NoError(t, err)
	assert.Equal(t,
		` WHERE status = $1 AND total >= $2::numeric AND (lower(id COLLATE pg_c_utf8) LIKE '%' || $3 || '%' ESCAPE '\' OR lower(customer_name COLLATE pg_c_utf8) LIKE '%' || $4 || '%' ESCAPE '\')`,
		where)
	assert.Equal(t, []any{"ready", "50", `a\_b`, `a\_b`}, args)
}

func Test_buildOrderWhere_Empty(t *testing.T) {
	where, args, err := buildOrderWhere(nil)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func Test_buildOrderWhere_UnknownField(t *testing.T) {
	_, _, err := buildOrderWhere([]Condition{Eq("price", "1")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func Test_buildOrderBy(t *testing.T) {
	testCases := []struct {
		sort   Sort
		expect string
	}{
		{Sort{}, " ORDER BY created_at DESC, seq ASC"},
		{Sort{Field: FieldTotal}, " ORDER BY total ASC, seq ASC"},
		{Sort{Field: FieldTotal, Desc: true}, " ORDER BY total DESC, seq ASC"},
		{Sort{Field: FieldSeq}, " ORDER BY seq ASC, seq ASC"},
	}
	for _, tc := range testCases {
		got, err := buildOrderBy(tc.sort)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, got)
	}
}

func Test_escapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_x\\`, escapeLike(`100%_x\`))
}
