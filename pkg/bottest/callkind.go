package bottest

// CallKind classifies an outbound Bot API call. The value is the method's
// wire name, or "other" for methods outside the modelled surface.
type CallKind string

const (
	CallSendMessage        CallKind = "sendMessage"
	CallEditMessageText    CallKind = "editMessageText"
	CallEditMessageMarkup  CallKind = "editMessageReplyMarkup"
	CallDeleteMessage      CallKind = "deleteMessage"
	CallForwardMessage     CallKind = "forwardMessage"
	CallCopyMessage        CallKind = "copyMessage"
	CallSendPhoto          CallKind = "sendPhoto"
	CallSendVideo          CallKind = "sendVideo"
	CallSendAudio          CallKind = "sendAudio"
	CallSendDocument       CallKind = "sendDocument"
	CallSendSticker        CallKind = "sendSticker"
	CallSendAnimation      CallKind = "sendAnimation"
	CallSendVoice          CallKind = "sendVoice"
	CallSendVideoNote      CallKind = "sendVideoNote"
	CallSendMediaGroup     CallKind = "sendMediaGroup"
	CallSendDice           CallKind = "sendDice"
	CallSendLocation       CallKind = "sendLocation"
	CallSendContact        CallKind = "sendContact"
	CallSendPoll           CallKind = "sendPoll"
	CallSendChatAction     CallKind = "sendChatAction"
	CallAnswerCallback     CallKind = "answerCallbackQuery"
	CallAnswerInlineQuery  CallKind = "answerInlineQuery"
	CallGetChat            CallKind = "getChat"
	CallGetChatMember      CallKind = "getChatMember"
	CallBanChatMember      CallKind = "banChatMember"
	CallUnbanChatMember    CallKind = "unbanChatMember"
	CallRestrictChatMember CallKind = "restrictChatMember"
	CallGetMe              CallKind = "getMe"
	CallGetMyCommands      CallKind = "getMyCommands"
	CallSetMyCommands      CallKind = "setMyCommands"
	CallOther              CallKind = "other"
)

// KindOf maps a method name to its call kind. Every unrecognized name,
// including the literal "other", maps to CallOther.
func KindOf(method string) CallKind {
	switch kind := CallKind(method); kind {
	case CallSendMessage, CallEditMessageText, CallEditMessageMarkup, CallDeleteMessage,
		CallForwardMessage, CallCopyMessage,
		CallSendPhoto, CallSendVideo, CallSendAudio, CallSendDocument, CallSendSticker,
		CallSendAnimation, CallSendVoice, CallSendVideoNote, CallSendMediaGroup,
		CallSendDice, CallSendLocation, CallSendContact, CallSendPoll, CallSendChatAction,
		CallAnswerCallback, CallAnswerInlineQuery,
		CallGetChat, CallGetChatMember, CallBanChatMember, CallUnbanChatMember, CallRestrictChatMember,
		CallGetMe, CallGetMyCommands, CallSetMyCommands:
		return kind
	default:
		return CallOther
	}
}

// mediaField returns the form field carrying the file of a media kind.
func (k CallKind) mediaField() string {
	switch k {
	case CallSendPhoto:
		return "photo"
	case CallSendVideo:
		return "video"
	case CallSendAudio:
		return "audio"
	case CallSendDocument:
		return "document"
	case CallSendSticker:
		return "sticker"
	case CallSendAnimation:
		return "animation"
	case CallSendVoice:
		return "voice"
	case CallSendVideoNote:
		return "video_note"
	default:
		return ""
	}
}
