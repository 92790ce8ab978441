package engines

import (
	"math"
	"strings"
)

// featureVectorLength is the fixed length of the feature vector the ML
// engine extracts. Changing this, or the ordering below, is a breaking
// change to the model contract (spec.md §4.4).
const featureVectorLength = 16

// histogramBuckets groups the 256 possible byte values into this many
// buckets for the feature vector, keeping the vector length fixed
// regardless of how granular a full histogram would be.
const histogramBuckets = 8

// dangerousAPIs is the default list of Windows API names whose presence in
// a binary's import-like strings is considered suspicious. Tunable (see
// DESIGN.md).
var dangerousAPIs = []string{
	"VirtualAlloc",
	"WriteProcessMemory",
	"CreateRemoteThread",
	"SetWindowsHookEx",
	"URLDownloadToFile",
	"WinExec",
	"ShellExecute",
}

// suspiciousDLLs is the default list of DLL names considered suspicious
// when referenced by an otherwise-unremarkable binary.
var suspiciousDLLs = []string{
	"ws2_32.dll",
	"wininet.dll",
	"urlmon.dll",
	"advapi32.dll",
}

// featureVector extracts a fixed-length feature vector from content:
//
//	[0:8]   byte-histogram density across 8 buckets (each bucket's share of
//	        the byte range, e.g. bucket 0 = bytes 0x00-0x1F)
//	[8]     Shannon entropy, normalized to [0, 1] (max entropy is 8 bits)
//	[9]     size bucket: log2(len(content)+1) normalized against a 32-bit
//	        scale
//	[10]    PE indicator: 1.0 if content begins with the "MZ" signature
//	[11]    dangerous-API import count, normalized by len(dangerousAPIs)
//	[12]    suspicious-DLL count, normalized by len(suspiciousDLLs)
//	[13:16] reserved, always 0 (kept for forward-compatible model inputs)
func featureVector(content []byte) [featureVectorLength]float64 {
	var v [featureVectorLength]float64

	if len(content) == 0 {
		return v
	}

	var counts [256]int
	for _, b := range content {
		counts[b]++
	}

	bucketWidth := 256 / histogramBuckets
	for bucket := 0; bucket < histogramBuckets; bucket++ {
		var sum int
		for i := bucket * bucketWidth; i < (bucket+1)*bucketWidth; i++ {
			sum += counts[i]
		}
		v[bucket] = float64(sum) / float64(len(content))
	}

	var entropy float64
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(len(content))
		entropy -= p * math.Log2(p)
	}
	v[8] = entropy / 8.0

	v[9] = math.Log2(float64(len(content))+1) / 32.0

	if len(content) >= 2 && content[0] == 'M' && content[1] == 'Z' {
		v[10] = 1.0
	}

	text := string(content)
	var apiHits, dllHits int
	for _, api := range dangerousAPIs {
		if strings.Contains(text, api) {
			apiHits++
		}
	}
	for _, dll := range suspiciousDLLs {
		if strings.Contains(text, dll) {
			dllHits++
		}
	}
	v[11] = float64(apiHits) / float64(len(dangerousAPIs))
	v[12] = float64(dllHits) / float64(len(suspiciousDLLs))

	return v
}
