package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberPair_IsOrderIndependent(t *testing.T) {
	a1, b1 := MemberPair("zoe", "adam")
	a2, b2 := MemberPair("adam", "zoe")
	assert.Equal(t, "adam", a1)
	assert.Equal(t, "zoe", b1)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestConversation_Visibility(t *testing.T) {
	cv := Conversation{MemberA: "alice", MemberB: "bob"}
	assert.Equal(t, "bob", cv.Peer("alice"))
	assert.Equal(t, "alice", cv.Peer("bob"))
	assert.Equal(t, "", cv.Peer("carol"))

	assert.True(t, cv.VisibleTo("alice"))
	assert.False(t, cv.VisibleTo("carol"))
	assert.False(t, cv.HiddenByAll())

	assert.True(t, cv.DeletedBy.Add("alice"))
	assert.False(t, cv.DeletedBy.Add("alice"))
	assert.False(t, cv.VisibleTo("alice"))
	assert.True(t, cv.VisibleTo("bob"))
	assert.False(t, cv.HiddenByAll())

	cv.DeletedBy.Add("bob")
	assert.True(t, cv.HiddenByAll())
}

func TestUserSet_RemoveOnNilSet(t *testing.T) {
	var s UserSet
	assert.False(t, s.Remove("alice"))
	assert.False(t, s.Has("alice"))
	assert.Empty(t, s.Slice())
}

func TestUserSet_JSONIsSortedArray(t *testing.T) {
	s := NewUserSet("carol", "alice", "bob")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["alice","bob","carol"]`, string(data))

	var back UserSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.ContainsAll("alice", "bob", "carol"))
	assert.Len(t, back, 3)
}

func TestUserSet_CloneIsIndependent(t *testing.T) {
	s := NewUserSet("alice")
	cp := s.Clone()
	cp.Add("bob")
	assert.False(t, s.Has("bob"))
}
