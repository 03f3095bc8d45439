package apperrors

// Ошибки предметной области — используются сервисами и хранилищами
var (
	ErrSelfMessage          = Validation("Нельзя отправить сообщение самому себе")
	ErrEmptyContent         = Validation("Текст сообщения не может быть пустым")
	ErrBadContextType       = Validation("Недопустимый тип контекста диалога")
	ErrRecipientNotFound    = NotFound("Получатель не найден")
	ErrConversationNotFound = NotFound("Диалог не найден")
	ErrNotParticipant       = Forbidden("У вас нет доступа к этому диалогу")
	ErrMessageNotFound      = NotFound("Сообщение не найдено")
	ErrNotMessageSender     = Forbidden("Удалять можно только свои сообщения")

	ErrConversationExists = Conflict("Диалог для этой пары и контекста уже существует")

	ErrItemNotFound      = NotFound("Вещь не найдена")
	ErrNotItemOwner      = Forbidden("Вы не можете предложить чужую вещь для обмена")
	ErrSelfTrade         = Validation("Нельзя предложить обмен самому себе")
	ErrDuplicateProposal = Conflict("Такое предложение обмена уже существует")
	ErrProposalNotFound  = NotFound("Предложение обмена не найдено")
	ErrProposalResolved  = InvalidState("Предложение обмена уже рассмотрено")
	ErrNotProposalOwner  = Forbidden("Только получатель предложения может его принять или отклонить")
	ErrNotProposer       = Forbidden("Только инициатор предложения может его отменить")

	ErrDealNotFound       = NotFound("Сделка не найдена")
	ErrNotDealParticipant = Forbidden("Вы не являетесь стороной этой сделки")
	ErrDealTerminal       = InvalidState("Сделка уже завершена")
)
