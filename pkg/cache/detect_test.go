package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// littleHeader returns a little endian header image with the build at addr.
func littleHeader(version int32, addr int, build string, extra func([]byte)) []byte {
	b := make([]byte, 0x800)
	copy(b, "daeh")
	binary.LittleEndian.PutUint32(b[4:], uint32(version))
	if extra != nil {
		extra(b)
	}
	copy(b[addr:], build)
	return b
}

func TestDetect(t *testing.T) {
	res, err := DefaultResources()
	if err != nil {
		t.Fatalf("resources: %v", err)
	}

	tests := []struct {
		name      string
		data      []byte
		wantType  CacheType
		wantBuild string
		wantOrder binary.ByteOrder
		wantFlags Flags
	}{
		{
			name:      "Halo1PC",
			data:      littleHeader(7, 64, "01.00.00.0564", nil),
			wantType:  Halo1PC,
			wantBuild: "01.00.00.0564",
			wantOrder: binary.LittleEndian,
		},
		{
			name:      "Halo1PCBeta",
			data:      littleHeader(7, 64, "01.07.30.0452", nil),
			wantType:  Halo1PC,
			wantBuild: "01.07.30.0452",
			wantOrder: binary.LittleEndian,
			wantFlags: Beta,
		},
		{
			name:      "Halo2Xbox",
			data:      littleHeader(8, 288, "02.09.27.09809", nil),
			wantType:  Halo2Xbox,
			wantBuild: "02.09.27.09809",
			wantOrder: binary.LittleEndian,
		},
		{
			name: "Halo2Vista",
			data: littleHeader(8, 300, "11081.07.04.30.0934.main", func(b []byte) {
				binary.LittleEndian.PutUint32(b[36:], 0xFFFFFFFF)
			}),
			wantType:  Halo2Vista,
			wantBuild: "11081.07.04.30.0934.main",
			wantOrder: binary.LittleEndian,
		},
		{
			name:      "MccFlight",
			data:      littleHeader(13, 64, "Jun 24 2019 00:36:03", nil),
			wantType:  MccHaloReach,
			wantBuild: "Jun 24 2019 00:36:03",
			wantOrder: binary.LittleEndian,
			wantFlags: Mcc | Flight,
		},
		{
			name: "MccU8",
			data: littleHeader(13, 160, "Sep 13 2021 09:49:52", func(b []byte) {
				binary.LittleEndian.PutUint32(b[64:], 0x12345678)
			}),
			wantType:  MccHaloReachU8,
			wantBuild: "Sep 13 2021 09:49:52",
			wantOrder: binary.LittleEndian,
			wantFlags: Mcc,
		},
		{
			name:      "Halo3Retail",
			data:      buildHalo3(t, defaultFixtureTags()),
			wantType:  Halo3Retail,
			wantBuild: fixtureBuild,
			wantOrder: binary.BigEndian,
		},
		{
			name:      "UnknownBuild",
			data:      littleHeader(7, 64, "99.99.99.9999", nil),
			wantType:  Unknown,
			wantBuild: "99.99.99.9999",
			wantOrder: binary.LittleEndian,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Detect(bytes.NewReader(tt.data), int64(len(tt.data)), res)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if d.CacheType() != tt.wantType {
				t.Errorf("type: got %s, want %s", d.CacheType(), tt.wantType)
			}
			if d.BuildString != tt.wantBuild {
				t.Errorf("build: got %q, want %q", d.BuildString, tt.wantBuild)
			}
			if d.ByteOrder != tt.wantOrder {
				t.Errorf("byte order: got %v, want %v", d.ByteOrder, tt.wantOrder)
			}
			if d.Metadata.Flags != tt.wantFlags {
				t.Errorf("flags: got %s, want %s", d.Metadata.Flags, tt.wantFlags)
			}
		})
	}
}

func TestDetectInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"BadMagic", append([]byte("tail"), make([]byte, 0x800)...)},
		{"Truncated", []byte("da")},
		{"Halo2Marker", littleHeader(8, 288, "02.09.27.09809", func(b []byte) {
			binary.LittleEndian.PutUint32(b[36:], 7)
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Detect(bytes.NewReader(tt.data), int64(len(tt.data)), nil)
			if !errors.Is(err, ErrInvalidHeader) {
				t.Errorf("got %v, want ErrInvalidHeader", err)
			}
		})
	}
}
