package store

import "github.com/Nephrolytics-ai/medscribe/internal/types"

// defaultTemplates are the templates seeded on first run so the service is
// usable before anyone uploads a document.
func defaultTemplates() []types.Template {
	return []types.Template{
		{
			Name: "general_soap_note",
			Fields: ordered(
				types.FieldDefinition{Key: "patient_name", Label: "Patient Name", Description: "Full name of the patient", Section: "Patient Information", ValueType: types.ValueText},
				types.FieldDefinition{Key: "age_gender", Label: "Age / Gender", Description: "Age and gender of patient", Section: "Patient Information", ValueType: types.ValueText},
				types.FieldDefinition{Key: "date_of_visit", Label: "Date of Visit", Description: "Visit date in DD-MMM-YYYY or format shown", Section: "Patient Information", ValueType: types.ValueText},
				types.FieldDefinition{Key: "chief_complaint", Label: "Chief Complaint", Description: "Main reason for visit or primary symptom", Section: "Subjective", ValueType: types.ValueText},
				types.FieldDefinition{Key: "history_of_present_illness", Label: "History of Present Illness", Description: "Detailed description of current symptoms and timeline", Section: "Subjective", ValueType: types.ValueText},
				types.FieldDefinition{Key: "relevant_medical_history", Label: "Relevant Medical History", Description: "Previous medical conditions, surgeries, or chronic illnesses", Section: "Subjective", ValueType: types.ValueText},
				types.FieldDefinition{Key: "current_medications_allergies", Label: "Current Medications & Allergies", Description: "List of current medications with dosage and known allergies", Section: "Subjective", ValueType: types.ValueText},
				types.FieldDefinition{Key: "vital_signs", Label: "Vital Signs", Description: "Temperature, blood pressure, heart rate, respiratory rate, oxygen saturation", Section: "Objective", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "general_findings", Label: "General Findings", Description: "Overall physical exam findings and observations", Section: "Objective", ValueType: types.ValueText},
				types.FieldDefinition{Key: "assessment", Label: "Assessment", Description: "Doctor's diagnosis or clinical impression", Section: "Assessment & Plan", ValueType: types.ValueText},
				types.FieldDefinition{Key: "plan", Label: "Plan", Description: "Treatment plan, prescriptions, and recommendations", Section: "Assessment & Plan", ValueType: types.ValueText},
				types.FieldDefinition{Key: "follow_up", Label: "Follow Up", Description: "Follow-up instructions and timeline", Section: "Assessment & Plan", ValueType: types.ValueText},
			),
		},
		{
			Name: "cardiology_consultation",
			Fields: ordered(
				types.FieldDefinition{Key: "patient_information", Label: "Patient Information", Description: "Name, age in years, and gender of the patient", Section: "Patient Information", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "date_of_visit", Label: "Date of Visit", Description: "Visit date in DD-MMM-YYYY format", Section: "Patient Information", ValueType: types.ValueText},
				types.FieldDefinition{Key: "chief_complaint", Label: "Chief Complaint", Description: "Primary cardiac-related complaint or reason for visit", Section: "History", ValueType: types.ValueText},
				types.FieldDefinition{Key: "history_of_present_illness", Label: "History of Present Illness", Description: "Detailed description of cardiac symptoms, onset, duration, and progression", Section: "History", ValueType: types.ValueText},
				types.FieldDefinition{Key: "cardiac_history", Label: "Cardiac History", Description: "Previous cardiac events and risk factors such as hypertension, diabetes, smoking, family history", Section: "History", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "current_medications", Label: "Current Medications", Description: "List of current cardiac medications with dosages", Section: "History", ValueType: types.ValueText},
				types.FieldDefinition{Key: "vital_signs", Label: "Vital Signs", Description: "Blood pressure, heart rate, respiratory rate, oxygen saturation, temperature", Section: "Physical Examination", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "cardiovascular_exam", Label: "Cardiovascular Exam", Description: "Heart sounds, peripheral pulses, edema, and jugular venous distension findings", Section: "Physical Examination", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "respiratory_exam", Label: "Respiratory Exam", Description: "Lung sounds and respiratory findings", Section: "Physical Examination", ValueType: types.ValueText},
				types.FieldDefinition{Key: "diagnostic_tests", Label: "Diagnostic Tests", Description: "ECG, echocardiogram, labs (troponin, BNP, lipid panel), and cardiac imaging findings", Section: "Diagnostics", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "assessment", Label: "Assessment", Description: "Primary cardiac diagnosis and severity classification", Section: "Assessment & Plan", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "treatment_plan", Label: "Treatment Plan", Description: "Medications, procedures, and lifestyle modifications", Section: "Assessment & Plan", ValueType: types.ValueStructured},
				types.FieldDefinition{Key: "follow_up", Label: "Follow Up", Description: "Follow-up timeline and monitoring plan", Section: "Assessment & Plan", ValueType: types.ValueText},
			),
		},
	}
}

func ordered(fields ...types.FieldDefinition) []types.FieldDefinition {
	for i := range fields {
		fields[i].Ordinal = i
	}
	return fields
}
