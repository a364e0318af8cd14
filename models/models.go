package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, RefreshToken from user.go
// - Resume and the parsed-resume value types from resume.go
// - InterviewSession, InterviewQuestion, InterviewResponse from interview.go

// Database schema overview:
// 1. users - Managed by cookie-based authentication
// 2. resumes - Uploaded resume files with immutable raw text and the AI-parsed profile
// 3. interview_sessions - One interview attempt against a specific resume
// 4. interview_questions - The ordered question set generated when a session starts
// 5. interview_responses - At most one answer (with its evaluation) per question
