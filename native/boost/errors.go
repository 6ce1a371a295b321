package boost

import "errors"

var (
	ErrDepositRequired                 = errors.New("boost: deposit required")
	ErrEndDateInPast                   = errors.New("boost: end date in past")
	ErrEndDateBeforeStart              = errors.New("boost: end date before start")
	ErrInvalidGuard                    = errors.New("boost: invalid guard")
	ErrDepositLessThanAmountPerAccount = errors.New("boost: deposit less than amount per account")
	ErrBoostDoesNotExist               = errors.New("boost: boost does not exist")
	ErrBoostNotStarted                 = errors.New("boost: boost not started")
	ErrBoostEnded                      = errors.New("boost: boost ended")
	ErrBoostNotEnded                   = errors.New("boost: boost not ended")
	ErrInsufficientBoostBalance        = errors.New("boost: insufficient boost balance")
	ErrOnlyBoostOwner                  = errors.New("boost: only boost owner")
	ErrOnlyBoostGuard                  = errors.New("boost: only boost guard")
	ErrInvalidRecipient                = errors.New("boost: invalid recipient")
	ErrRecipientAlreadyClaimed         = errors.New("boost: recipient already claimed")
	ErrInvalidSignature                = errors.New("boost: invalid signature")
	ErrInvalidWhitelistProof           = errors.New("boost: invalid whitelist proof")
	ErrInvalidClaim                    = errors.New("boost: invalid claim")
	ErrTooManyRecipients               = errors.New("boost: too many recipients")
	ErrInsufficientEthFee              = errors.New("boost: insufficient eth fee")
	ErrOnlyProtocolOwner               = errors.New("boost: only protocol owner")
)
