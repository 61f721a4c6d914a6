package apdu

import "fmt"

// StatusWord is the 16-bit outcome code the device reports for every frame
type StatusWord uint16

const (
	SWNoError                StatusWord = 0x9000
	SWExecutionError         StatusWord = 0x6400
	SWWrongLength            StatusWord = 0x6700
	SWEmptyBuffer            StatusWord = 0x6982
	SWOutputBufferTooSmall   StatusWord = 0x6983
	SWDataInvalid            StatusWord = 0x6984
	SWConditionsNotSatisfied StatusWord = 0x6985
	SWCommandNotAllowed      StatusWord = 0x6986
	SWBadKeyHandle           StatusWord = 0x6A80
	SWInvalidP1P2            StatusWord = 0x6B00
	SWInsNotSupported        StatusWord = 0x6D00
	SWClaNotSupported        StatusWord = 0x6E00
	SWUnknown                StatusWord = 0x6F00
	SWSignVerifyError        StatusWord = 0x6F01
)

var statusDescriptions = map[StatusWord]string{
	SWNoError:                "No errors",
	SWExecutionError:         "Execution error",
	SWWrongLength:            "Wrong buffer length",
	SWEmptyBuffer:            "Empty buffer",
	SWOutputBufferTooSmall:   "Output buffer too small",
	SWDataInvalid:            "Data is invalid",
	SWConditionsNotSatisfied: "Conditions not satisfied",
	SWCommandNotAllowed:      "Transaction rejected",
	SWBadKeyHandle:           "Bad key handle",
	SWInvalidP1P2:            "Invalid P1/P2",
	SWInsNotSupported:        "Instruction not supported",
	SWClaNotSupported:        "CLA not supported",
	SWUnknown:                "Unknown error",
	SWSignVerifyError:        "Sign/verify error",
}

// Description looks the status word up in the device table.
// The boolean is false for codes the table does not know.
func (s StatusWord) Description() (string, bool) {
	desc, ok := statusDescriptions[s]
	return desc, ok
}

func (s StatusWord) String() string {
	return fmt.Sprintf("0x%04X", uint16(s))
}
