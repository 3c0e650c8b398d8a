package types

// ConvertRequest is a parsed "<amount> <token>" command
type ConvertRequest struct {
	Amount string
	Token  string
}
