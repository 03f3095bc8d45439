// Package lifecycle централизует правила смены статусов предложений обмена
// и сделок: какая сторона, из какого статуса, в какой может перевести.
// Обработчики не сравнивают статусы сами — вся легальность переходов здесь.
package lifecycle

import (
	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// ProposalActor описывает роль вызывающего относительно предложения
type ProposalActor struct {
	IsProposer bool // инициатор предложения
	IsOwner    bool // владелец целевой вещи
}

// ProposalTransition проверяет переход предложения из current в requested
// для данной роли. Возвращает статус, в который разрешено перейти.
//
// Правила: pending → accepted | rejected только владельцем целевой вещи;
// pending → cancelled только инициатором; терминальные статусы не меняются.
func ProposalTransition(current, requested models.ProposalStatus, actor ProposalActor) (models.ProposalStatus, error) {
	switch requested {
	case models.ProposalAccepted, models.ProposalRejected, models.ProposalCancelled:
	default:
		return "", apperrors.Validation("Недопустимый статус предложения обмена")
	}

	if !actor.IsProposer && !actor.IsOwner {
		return "", apperrors.ErrNotProposalOwner
	}

	if current != models.ProposalPending {
		return "", apperrors.ErrProposalResolved
	}

	switch requested {
	case models.ProposalAccepted, models.ProposalRejected:
		if !actor.IsOwner {
			return "", apperrors.ErrNotProposalOwner
		}
	case models.ProposalCancelled:
		if !actor.IsProposer {
			return "", apperrors.ErrNotProposer
		}
	}

	return requested, nil
}

// dealOrder — строгий порядок продвижения сделки вперед
var dealOrder = []models.DealStatus{
	models.DealNegotiating,
	models.DealAgreed,
	models.DealShipping,
	models.DealCompleted,
}

// NextDealStatus возвращает следующий шаг сделки после current.
// Для терминальных статусов следующего шага нет.
func NextDealStatus(current models.DealStatus) (models.DealStatus, bool) {
	for i, status := range dealOrder {
		if status == current && i+1 < len(dealOrder) {
			return dealOrder[i+1], true
		}
	}
	return "", false
}

// DealTransition проверяет переход сделки из current в requested. Любая
// сторона сделки может продвинуть ее ровно на один шаг вперед или отменить
// из нетерминального статуса; пропуск шагов и откат запрещены.
func DealTransition(current, requested models.DealStatus) (models.DealStatus, error) {
	switch requested {
	case models.DealAgreed, models.DealShipping, models.DealCompleted, models.DealCancelled:
	default:
		return "", apperrors.Validation("Недопустимый статус сделки")
	}

	if current.IsTerminal() {
		return "", apperrors.ErrDealTerminal
	}

	if requested == models.DealCancelled {
		return models.DealCancelled, nil
	}

	next, ok := NextDealStatus(current)
	if !ok || next != requested {
		return "", apperrors.InvalidState("Недопустимый переход статуса сделки")
	}
	return next, nil
}
