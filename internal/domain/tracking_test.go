package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextStep(t *testing.T) {
	next, ok := NextStep(StepCreated)
	require.True(t, ok)
	require.Equal(t, StepProcessing, next)

	next, ok = NextStep(StepDelivered)
	require.True(t, ok)
	require.Equal(t, StepCompleted, next)

	_, ok = NextStep(StepCompleted)
	require.False(t, ok)

	_, ok = NextStep("unknown")
	require.False(t, ok)
}

func TestStepSequenceCoversNextStep(t *testing.T) {
	for i, step := range StepSequence[:len(StepSequence)-1] {
		next, ok := NextStep(step)
		require.True(t, ok)
		require.Equal(t, StepSequence[i+1], next)
	}
}

func TestChecklistDone(t *testing.T) {
	checklist := OrderChecklist{
		Completed: true,
		Items: []OrderItemChecklist{
			{Packaged: true, CustomerConfirmed: true},
			{Packaged: true, CustomerConfirmed: true},
		},
	}
	require.True(t, checklist.Done())

	checklist.Items[1].CustomerConfirmed = false
	require.False(t, checklist.Done())

	checklist.Items[1].CustomerConfirmed = true
	checklist.Completed = false
	require.False(t, checklist.Done())
}

func TestChecklistDone_NoItems(t *testing.T) {
	checklist := OrderChecklist{Completed: true}
	require.False(t, checklist.Done())
}

func TestItemChecklistDone(t *testing.T) {
	require.False(t, OrderItemChecklist{Packaged: true}.Done())
	require.False(t, OrderItemChecklist{CustomerConfirmed: true}.Done())
	require.True(t, OrderItemChecklist{Packaged: true, CustomerConfirmed: true}.Done())
}
