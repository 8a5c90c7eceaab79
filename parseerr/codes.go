package parseerr

// Códigos numéricos do envelope de erro do Parse Server.
const (
	OtherCause                  = -1
	InternalServerError         = 1
	ConnectionFailed            = 100
	ObjectNotFound              = 101
	InvalidQuery                = 102
	InvalidClassName            = 103
	MissingObjectID             = 104
	InvalidKeyName              = 105
	InvalidPointer              = 106
	InvalidJSON                 = 107
	CommandUnavailable          = 108
	NotInitialized              = 109
	IncorrectType               = 111
	InvalidChannelName          = 112
	PushMisconfigured           = 115
	ObjectTooLarge              = 116
	OperationForbidden          = 119
	CacheMiss                   = 120
	InvalidNestedKey            = 121
	InvalidFileName             = 122
	InvalidACL                  = 123
	Timeout                     = 124
	InvalidEmailAddress         = 125
	MissingContentType          = 126
	MissingContentLength        = 127
	InvalidContentLength        = 128
	FileTooLarge                = 129
	FileSaveError               = 130
	DuplicateValue              = 137
	InvalidRoleName             = 139
	ExceededQuota               = 140
	ScriptFailed                = 141
	ValidationError             = 142
	FileDeleteError             = 153
	RequestLimitExceeded        = 155
	InvalidEventName            = 160
	UsernameMissing             = 200
	PasswordMissing             = 201
	UsernameTaken               = 202
	EmailTaken                  = 203
	EmailMissing                = 204
	EmailNotFound               = 205
	SessionMissing              = 206
	MustCreateUserThroughSignup = 207
	AccountAlreadyLinked        = 208
	InvalidSessionToken         = 209
	LinkedIDMissing             = 250
	InvalidLinkedSession        = 251
	UnsupportedService          = 252
	ClassNotEmpty               = 255
	AggregateError              = 600
	FileReadError               = 601
)
