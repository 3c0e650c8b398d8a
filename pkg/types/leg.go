package types

import "hop-convert/pkg/network"

// Leg is one side of a conversion as shown on the confirmation step
type Leg struct {
	Amount  string
	Token   Token
	Network network.Descriptor
}
