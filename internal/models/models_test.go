package models

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
)

func keypair(t *testing.T, b byte) identity.Keypair {
	t.Helper()
	kp, err := identity.KeypairFromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

func TestLedgerAccount_Layout(t *testing.T) {
	acct := LedgerAccount{Authority: keypair(t, 1).PublicKey(), Balance: 600}

	data, err := acct.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 48)
	assert.Equal(t, accountDiscriminator[:], data[:8])
	assert.Equal(t, acct.Authority[:], data[8:40])
	assert.Equal(t, []byte{0x58, 0x02, 0, 0, 0, 0, 0, 0}, data[40:])

	var decoded LedgerAccount
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, acct, decoded)
}

func TestLedgerAccount_UnmarshalRejectsForeignData(t *testing.T) {
	var acct LedgerAccount

	err := acct.UnmarshalBinary(make([]byte, 47))
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	err = acct.UnmarshalBinary(make([]byte, AccountSize))
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestDeriveAccountAddress(t *testing.T) {
	program := keypair(t, 42).PublicKey()
	a := keypair(t, 1).PublicKey()
	b := keypair(t, 2).PublicKey()

	addrA, bumpA, err := DeriveAccountAddress(program, a)
	require.NoError(t, err)
	addrB, _, err := DeriveAccountAddress(program, b)
	require.NoError(t, err)
	assert.NotEqual(t, addrA, addrB)

	again, err := identity.CreateProgramAddress(append(AccountSeeds(a), []byte{bumpA}), program)
	require.NoError(t, err)
	assert.Equal(t, addrA, again)
}

func TestOpKind(t *testing.T) {
	for _, k := range []OpKind{OpCreate, OpDeposit, OpWithdraw} {
		parsed, err := ParseOpKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.True(t, k.Valid())
	}

	_, err := ParseOpKind("close")
	assert.Error(t, err)
	assert.False(t, OpKind(0).Valid())
	assert.False(t, OpKind(4).Valid())
}

func TestInstruction_SignVerify(t *testing.T) {
	program := keypair(t, 42).PublicKey()
	kp := keypair(t, 1)

	ins, err := NewInstruction(OpDeposit, program, kp.PublicKey(), 1000)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ins.OperationID)

	signed := ins.Sign(kp)
	assert.True(t, signed.Verify())

	tampered := signed
	tampered.Amount = 1001
	assert.False(t, tampered.Verify(), "amount is covered by the signature")

	forged := ins.Sign(keypair(t, 2))
	assert.False(t, forged.Verify())
}

func TestInstruction_MessageLayout(t *testing.T) {
	ins := Instruction{Kind: OpWithdraw, Amount: 1}
	msg := ins.Message()

	require.Len(t, msg, len(SigningDomain)+1+16+32+32+8)
	assert.Equal(t, SigningDomain, string(msg[:len(SigningDomain)]))
	assert.Equal(t, byte(OpWithdraw), msg[len(SigningDomain)])
	assert.Equal(t, byte(1), msg[len(msg)-8])
}

func TestUnits(t *testing.T) {
	base, err := ParseUnits("0.05")
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), base)
	assert.Equal(t, "0.05", ToUnits(base).String())

	_, err = ParseUnits("0.0000000001")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseUnits("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseUnits("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseUnits("18446744074")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDecimalConversions(t *testing.T) {
	d := DecimalFromUint64(math.MaxUint64)
	assert.Equal(t, "18446744073709551615", d.String())

	back, err := Uint64FromDecimal(d)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), back)

	_, err = Uint64FromDecimal(d.Add(decimal.NewFromInt(1)))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEntries(t *testing.T) {
	op := uuid.New()
	addr := keypair(t, 1).PublicKey()

	debit := Debit(op, addr, 400, MemoWithdraw, time.Time{})
	credit := Credit(op, addr, 400, MemoDeposit, time.Time{})

	assert.True(t, debit.Amount.Equal(decimal.NewFromInt(-400)))
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(400)))
	assert.NotEqual(t, debit.ID, credit.ID)
}

func TestOperation_Matches(t *testing.T) {
	ins := Instruction{
		Kind:        OpDeposit,
		OperationID: uuid.New(),
		Authority:   keypair(t, 1).PublicKey(),
		Account:     keypair(t, 2).PublicKey(),
		Amount:      10,
	}
	op := OperationFrom(ins, time.Now())
	assert.True(t, op.Matches(ins))

	tests := map[string]func(i *Instruction){
		"amount":    func(i *Instruction) { i.Amount = 500 },
		"kind":      func(i *Instruction) { i.Kind = OpWithdraw },
		"authority": func(i *Instruction) { i.Authority = keypair(t, 3).PublicKey() },
		"account":   func(i *Instruction) { i.Account = keypair(t, 4).PublicKey() },
		"id":        func(i *Instruction) { i.OperationID = uuid.New() },
	}
	for name, mutate := range tests {
		other := ins
		mutate(&other)
		assert.False(t, op.Matches(other), name)
	}
}
