package protocol

// DecodeWiper extracts a 9-bit wiper position from the response to a read command.
func DecodeWiper(resp []byte) (uint16, error) {
	if len(resp) < 2 {
		return 0, &ShortResponseError{Expected: 2, Actual: len(resp)}
	}
	return uint16(resp[1]) | uint16(resp[0]&DataMask)<<8, nil
}

// DecodeData returns the low data byte of a read response, as used for the TCON and STATUS
// registers.
func DecodeData(resp []byte) (byte, error) {
	if len(resp) < 2 {
		return 0, &ShortResponseError{Expected: 2, Actual: len(resp)}
	}
	return resp[1], nil
}

// CheckResponse verifies the CMDERR bit clocked out with the control byte. The device holds it
// high for valid commands and pulls it low when the command is rejected.
func CheckResponse(resp []byte) error {
	if len(resp) < 1 {
		return &ShortResponseError{Expected: 1, Actual: len(resp)}
	}
	if resp[0]&CmdErrMask == 0 {
		return ErrCommandError
	}
	return nil
}
