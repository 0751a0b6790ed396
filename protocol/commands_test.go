package protocol

import (
	"testing"

	"go.viam.com/test"
)

func TestBuildFrame(t *testing.T) {
	tests := []struct {
		name     string
		addr     Address
		cmd      Command
		expected []byte
	}{
		{"increment pot0", AddressPot0Wiper, CommandIncrement, []byte{0b00000110}},
		{"increment pot1", AddressPot1Wiper, CommandIncrement, []byte{0b00010110}},
		{"decrement pot0", AddressPot0Wiper, CommandDecrement, []byte{0b00001010}},
		{"decrement pot1", AddressPot1Wiper, CommandDecrement, []byte{0b00011010}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.That(t, BuildFrame(tt.addr, tt.cmd), test.ShouldResemble, tt.expected)
		})
	}
}

func TestBuildDataFrame(t *testing.T) {
	tests := []struct {
		name     string
		addr     Address
		cmd      Command
		data     uint16
		expected []byte
	}{
		{"write zero", AddressPot0Wiper, CommandWrite, 0, []byte{0x02, 0x00}},
		{"write midscale", AddressPot0Wiper, CommandWrite, 128, []byte{0x02, 0x80}},
		{"write 255", AddressPot1Wiper, CommandWrite, 255, []byte{0x12, 0xFF}},
		{"write full scale", AddressPot1Wiper, CommandWrite, FullScale, []byte{0x13, 0x00}},
		{"read wiper", AddressPot0Wiper, CommandRead, DataMaskWord, []byte{0x0F, 0xFF}},
		{"read tcon", AddressTCON, CommandRead, DataMaskWord, []byte{0x4F, 0xFF}},
		{"read status", AddressStatus, CommandRead, DataMaskWord, []byte{0x5F, 0xFF}},
		{"write tcon all clear", AddressTCON, CommandWrite, TCONReserved, []byte{0x43, 0x00}},
		{"write tcon all set", AddressTCON, CommandWrite, TCONReserved | 0xFF, []byte{0x43, 0xFF}},
		{"write tcon partial", AddressTCON, CommandWrite, TCONReserved | 0x0F, []byte{0x42, 0x0F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.That(t, BuildDataFrame(tt.addr, tt.cmd, tt.data), test.ShouldResemble, tt.expected)
		})
	}
}

func TestControlByteInvariants(t *testing.T) {
	test.That(t, AddressMask&CommandMask, test.ShouldEqual, 0)
	test.That(t, (AddressMask|CommandMask)&(CmdErrMask|DataMask), test.ShouldEqual, 0)

	for _, addr := range []Address{AddressPot0Wiper, AddressPot1Wiper, AddressTCON, AddressStatus} {
		for _, cmd := range []Command{CommandWrite, CommandIncrement, CommandDecrement, CommandRead} {
			frame := BuildFrame(addr, cmd)
			test.That(t, frame[0]&CmdErrMask, test.ShouldEqual, CmdErrMask)

			gotAddr, gotCmd, ok, d8 := ParseControl(frame[0])
			test.That(t, gotAddr, test.ShouldEqual, addr)
			test.That(t, gotCmd, test.ShouldEqual, cmd)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, d8, test.ShouldEqual, 0)
		}
	}
}

func TestDataBit8(t *testing.T) {
	for v := uint16(0); v <= 255; v++ {
		frame := BuildDataFrame(AddressPot0Wiper, CommandWrite, v)
		test.That(t, frame[0]&DataMask, test.ShouldEqual, 0)
	}
	frame := BuildDataFrame(AddressPot0Wiper, CommandWrite, 256)
	test.That(t, frame[0]&DataMask, test.ShouldEqual, DataMask)
}

func TestWiperRoundTrip(t *testing.T) {
	// A faithful device echoes D8 and the data byte back on a read.
	for v := uint16(0); v <= FullScale; v++ {
		frame := BuildDataFrame(AddressPot1Wiper, CommandWrite, v)
		got, err := DecodeWiper(frame)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, v)
	}
	got, err := DecodeWiper(BuildDataFrame(AddressPot0Wiper, CommandRead, DataMaskWord))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, DataMaskWord)
}

func TestStrings(t *testing.T) {
	test.That(t, AddressTCON.String(), test.ShouldEqual, "tcon")
	test.That(t, Address(0b1111).String(), test.ShouldEqual, "address(0xF)")
	test.That(t, CommandRead.String(), test.ShouldEqual, "read")
	test.That(t, CommandIncrement.HasData(), test.ShouldBeFalse)
	test.That(t, CommandWrite.HasData(), test.ShouldBeTrue)
	test.That(t, FormatFrame([]byte{0x4F, 0xFF}), test.ShouldEqual, "01001111 11111111")
	test.That(t, FormatFrame(nil), test.ShouldEqual, "")
}

func BenchmarkBuildDataFrame(b *testing.B) {
	for i := 0; i < b.N; i++ {
		BuildDataFrame(AddressPot0Wiper, CommandWrite, uint16(i)&DataMaskWord)
	}
}
