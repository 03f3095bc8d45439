package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

func TestProposalTransitionOwnerResolves(t *testing.T) {
	owner := ProposalActor{IsOwner: true}

	next, err := ProposalTransition(models.ProposalPending, models.ProposalAccepted, owner)
	require.NoError(t, err)
	require.Equal(t, models.ProposalAccepted, next)

	next, err = ProposalTransition(models.ProposalPending, models.ProposalRejected, owner)
	require.NoError(t, err)
	require.Equal(t, models.ProposalRejected, next)
}

func TestProposalTransitionProposerCancels(t *testing.T) {
	proposer := ProposalActor{IsProposer: true}

	next, err := ProposalTransition(models.ProposalPending, models.ProposalCancelled, proposer)
	require.NoError(t, err)
	require.Equal(t, models.ProposalCancelled, next)
}

func TestProposalTransitionRoleGating(t *testing.T) {
	// Инициатор не может принять или отклонить собственное предложение
	_, err := ProposalTransition(models.ProposalPending, models.ProposalAccepted, ProposalActor{IsProposer: true})
	require.ErrorIs(t, err, apperrors.ErrNotProposalOwner)

	_, err = ProposalTransition(models.ProposalPending, models.ProposalRejected, ProposalActor{IsProposer: true})
	require.ErrorIs(t, err, apperrors.ErrNotProposalOwner)

	// Владелец не может отозвать чужое предложение
	_, err = ProposalTransition(models.ProposalPending, models.ProposalCancelled, ProposalActor{IsOwner: true})
	require.ErrorIs(t, err, apperrors.ErrNotProposer)

	// Посторонний не видит предложение вообще
	_, err = ProposalTransition(models.ProposalPending, models.ProposalAccepted, ProposalActor{})
	require.ErrorIs(t, err, apperrors.ErrNotProposalOwner)
}

func TestProposalTransitionTerminalStatusesFrozen(t *testing.T) {
	owner := ProposalActor{IsOwner: true}
	proposer := ProposalActor{IsProposer: true}

	for _, current := range []models.ProposalStatus{
		models.ProposalAccepted, models.ProposalRejected, models.ProposalCancelled,
	} {
		_, err := ProposalTransition(current, models.ProposalRejected, owner)
		require.ErrorIs(t, err, apperrors.ErrProposalResolved, "статус %s", current)

		_, err = ProposalTransition(current, models.ProposalCancelled, proposer)
		require.ErrorIs(t, err, apperrors.ErrProposalResolved, "статус %s", current)
	}
}

func TestProposalTransitionRejectsUnknownStatus(t *testing.T) {
	_, err := ProposalTransition(models.ProposalPending, models.ProposalStatus("archived"), ProposalActor{IsOwner: true})
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	// pending нельзя запросить как целевой статус
	_, err = ProposalTransition(models.ProposalPending, models.ProposalPending, ProposalActor{IsOwner: true})
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

func TestNextDealStatusOrder(t *testing.T) {
	next, ok := NextDealStatus(models.DealNegotiating)
	require.True(t, ok)
	require.Equal(t, models.DealAgreed, next)

	next, ok = NextDealStatus(models.DealAgreed)
	require.True(t, ok)
	require.Equal(t, models.DealShipping, next)

	next, ok = NextDealStatus(models.DealShipping)
	require.True(t, ok)
	require.Equal(t, models.DealCompleted, next)

	_, ok = NextDealStatus(models.DealCompleted)
	require.False(t, ok)

	_, ok = NextDealStatus(models.DealCancelled)
	require.False(t, ok)
}

func TestDealTransitionSingleStepForward(t *testing.T) {
	cases := []struct {
		current models.DealStatus
		next    models.DealStatus
	}{
		{models.DealNegotiating, models.DealAgreed},
		{models.DealAgreed, models.DealShipping},
		{models.DealShipping, models.DealCompleted},
	}
	for _, tc := range cases {
		got, err := DealTransition(tc.current, tc.next)
		require.NoError(t, err, "переход %s → %s", tc.current, tc.next)
		require.Equal(t, tc.next, got)
	}
}

func TestDealTransitionNoStepSkipOrRollback(t *testing.T) {
	// Пропуск шага
	_, err := DealTransition(models.DealNegotiating, models.DealShipping)
	require.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = DealTransition(models.DealNegotiating, models.DealCompleted)
	require.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	// Откат назад
	_, err = DealTransition(models.DealShipping, models.DealAgreed)
	require.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestDealTransitionCancelFromAnyNonTerminal(t *testing.T) {
	for _, current := range []models.DealStatus{
		models.DealNegotiating, models.DealAgreed, models.DealShipping,
	} {
		next, err := DealTransition(current, models.DealCancelled)
		require.NoError(t, err, "отмена из %s", current)
		require.Equal(t, models.DealCancelled, next)
	}
}

func TestDealTransitionTerminalStatusesFrozen(t *testing.T) {
	for _, current := range []models.DealStatus{models.DealCompleted, models.DealCancelled} {
		_, err := DealTransition(current, models.DealCancelled)
		require.ErrorIs(t, err, apperrors.ErrDealTerminal, "статус %s", current)

		_, err = DealTransition(current, models.DealAgreed)
		require.ErrorIs(t, err, apperrors.ErrDealTerminal, "статус %s", current)
	}
}

func TestDealTransitionRejectsUnknownStatus(t *testing.T) {
	_, err := DealTransition(models.DealNegotiating, models.DealStatus("paused"))
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	// negotiating — начальный статус, переход в него не запрашивается
	_, err = DealTransition(models.DealAgreed, models.DealNegotiating)
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}
