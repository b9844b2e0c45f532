// Package events defines the typed event contract between the pipeline
// components and the conversation orchestrator.
//
// Event kinds are grouped by emitter-facing namespaces:
//
//   - voice.*      - voice activity detection output
//   - transcript.* - speech-to-text results
//   - reply.*      - streamed reply lifecycle
//   - playback.*   - audio playback lifecycle
//   - user_input.* - manually injected user input
//
// voice events
//
//   - SpeechStarted (voice.speech_started): a confirmed speech onset; the
//     onset threshold was held for the full continuity window.
//   - SpeechEnded (voice.speech_ended): speech ended after a sustained
//     silence window; carries the utterance duration.
//   - Interrupt (voice.interrupt): a single sample crossed the interrupt
//     threshold while the detector was armed; bypasses the continuity
//     window so barge-in is raised within one detector tick.
//   - UtteranceDiscarded (voice.utterance_discarded): speech ended but the
//     utterance was shorter than the configured minimum; the capture must
//     be released and nothing forwarded for recognition.
//
// transcript events
//
//   - TranscriptFinal (transcript.final): terminal recognized text for the
//     captured utterance.
//   - RecognitionFailed (transcript.recognition_failed): the recognizer
//     produced no usable transcript for the captured utterance.
//
// reply events
//
//   - ReplyStarted (reply.started): the first chunk of a streamed reply
//     arrived.
//   - ReplyTextSegment (reply.text_segment): append-only reply text
//     fragment, emitted in chunk sequence order.
//   - ReplyStreamEnded (reply.stream_ended): the reply stream closed;
//     carries the assembled reply text and the transport error, if any.
//
// playback events
//
//   - PlaybackFinished (playback.finished): the playback queue drained
//     after the stream ended; the spoken reply is complete.
//
// user_input events
//
//   - UserTextSubmitted (user_input.text_submitted): text typed by the
//     user as a fallback when recognition failed.
package events
