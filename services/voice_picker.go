package services

import (
	"crypto/sha1"
	"encoding/binary"
)

// Stock ElevenLabs voice IDs used for question playback
var interviewerVoices = []string{
	"EXAVITQu4vr4xnSDxMaL", // Rachel
	"21m00Tcm4TlvDq8ikWAM", // Domi
	"pNInz6obpgDQGcFmaJgB", // Adam
	"TxGEqnHWrfWFTfGW9XjX", // Antoni
	"VR6AewLTigWG4xSOukaG", // Josh
	"MF3mGyEYCl7XYWbV9V6O", // Dorothy
}

// PickSessionVoice returns a stock voice ID derived from the session ID, so a
// whole interview is read by one consistent interviewer voice and repeated
// playback of the same question hits the audio cache.
func PickSessionVoice(sessionID string) string {
	if len(interviewerVoices) == 0 {
		return "pNInz6obpgDQGcFmaJgB" // fallback Adam
	}
	h := sha1.New()
	h.Write([]byte(sessionID))
	sum := h.Sum(nil)
	idx := binary.BigEndian.Uint16(sum) % uint16(len(interviewerVoices))
	return interviewerVoices[idx]
}
