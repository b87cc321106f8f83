package domain

// Built-in model catalog. Each disease module is a data-only descriptor; the
// generic session, validation engine and interpreter execute all of them.
// Numeric bounds are the clinically plausible capture ranges for each
// measurement, not diagnostic cutoffs; the diagnostic cutoffs live in the
// risk rules.

// DiabetesModel assesses type 2 diabetes risk from routine labs and vitals.
func DiabetesModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "diabetes",
		Name:        "Diabetes Risk Assessment",
		Description: "Type 2 diabetes risk from glycemic markers, BMI and vitals",
		Fields: []FieldSpec{
			{Name: "age", Label: "Age", Kind: FieldNumber, Required: true, Min: 0, Max: 120, Unit: "years"},
			{Name: "bmi", Label: "Body Mass Index", Kind: FieldNumber, Required: true, Min: 10, Max: 60, Unit: "kg/m2"},
			{Name: "hba1c", Label: "HbA1c", Kind: FieldNumber, Required: true, Min: 3, Max: 15, Unit: "%"},
			{Name: "glucose", Label: "Blood Glucose", Kind: FieldNumber, Required: true, Min: 50, Max: 400, Unit: "mg/dL"},
			{Name: "blood_pressure", Label: "Diastolic Blood Pressure", Kind: FieldNumber, Required: false, Min: 30, Max: 140, Unit: "mmHg"},
			{Name: "insulin", Label: "Serum Insulin", Kind: FieldNumber, Required: false, Min: 0, Max: 900, Unit: "mu U/mL"},
			{Name: "pregnancies", Label: "Pregnancies", Kind: FieldNumber, Required: false, Min: 0, Max: 20},
			{Name: "family_history", Label: "Family History of Diabetes", Kind: FieldBoolean, Required: false},
		},
		Scheme: ClassificationScheme{
			Kind:          SchemeBinary,
			PositiveLabel: "Diabetes risk detected",
			NegativeLabel: "No diabetes risk detected",
		},
		RiskRules: []RiskRule{
			{Field: "hba1c", Op: RiskAbove, Threshold: 6.5, Severity: RiskHigh, Description: "HbA1c above 6.5% meets the diagnostic threshold for diabetes"},
			{Field: "glucose", Op: RiskAbove, Threshold: 126, Severity: RiskHigh, Description: "Fasting glucose above 126 mg/dL meets the diagnostic threshold for diabetes"},
			{Field: "bmi", Op: RiskAbove, Threshold: 30, Severity: RiskModerate, Description: "BMI above 30 indicates obesity, a major diabetes risk factor"},
			{Field: "blood_pressure", Op: RiskAbove, Threshold: 90, Severity: RiskModerate, Description: "Diastolic pressure above 90 mmHg indicates hypertension"},
			{Field: "age", Op: RiskAbove, Threshold: 45, Severity: RiskLow, Description: "Age above 45 carries elevated baseline diabetes risk"},
		},
	}
}

// HeartDiseaseModel assesses coronary heart disease risk.
func HeartDiseaseModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "heart-disease",
		Name:        "Heart Disease Risk Assessment",
		Description: "Coronary heart disease risk from cardiac workup measurements",
		Fields: []FieldSpec{
			{Name: "age", Label: "Age", Kind: FieldNumber, Required: true, Min: 0, Max: 120, Unit: "years"},
			{Name: "sex", Label: "Sex", Kind: FieldEnum, Required: true, AllowedValues: []string{"male", "female"}},
			{Name: "chest_pain_type", Label: "Chest Pain Type", Kind: FieldEnum, Required: true,
				AllowedValues: []string{"typical_angina", "atypical_angina", "non_anginal", "asymptomatic"}},
			{Name: "resting_bp", Label: "Resting Systolic Blood Pressure", Kind: FieldNumber, Required: true, Min: 80, Max: 220, Unit: "mmHg"},
			{Name: "cholesterol", Label: "Serum Cholesterol", Kind: FieldNumber, Required: true, Min: 100, Max: 600, Unit: "mg/dL"},
			{Name: "max_heart_rate", Label: "Maximum Heart Rate", Kind: FieldNumber, Required: true, Min: 60, Max: 220, Unit: "bpm"},
			{Name: "exercise_angina", Label: "Exercise-Induced Angina", Kind: FieldBoolean, Required: true},
			{Name: "oldpeak", Label: "ST Depression", Kind: FieldNumber, Required: false, Min: 0, Max: 7},
		},
		Scheme: ClassificationScheme{
			Kind:          SchemeBinary,
			PositiveLabel: "Heart disease risk detected",
			NegativeLabel: "No heart disease risk detected",
		},
		RiskRules: []RiskRule{
			{Field: "cholesterol", Op: RiskAbove, Threshold: 240, Severity: RiskHigh, Description: "Cholesterol above 240 mg/dL is in the high-risk range"},
			{Field: "resting_bp", Op: RiskAbove, Threshold: 140, Severity: RiskHigh, Description: "Systolic pressure above 140 mmHg indicates stage 2 hypertension"},
			{Field: "oldpeak", Op: RiskAbove, Threshold: 2, Severity: RiskModerate, Description: "ST depression above 2 mm suggests exercise-induced ischemia"},
			{Field: "age", Op: RiskAbove, Threshold: 55, Severity: RiskLow, Description: "Age above 55 carries elevated baseline cardiac risk"},
		},
	}
}

// BreastCancerModel assesses tumor malignancy from fine-needle aspirate
// morphology measurements.
func BreastCancerModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "breast-cancer",
		Name:        "Breast Cancer Malignancy Assessment",
		Description: "Tumor malignancy from cell nucleus morphology measurements",
		Fields: []FieldSpec{
			{Name: "mean_radius", Label: "Mean Radius", Kind: FieldNumber, Required: true, Min: 5, Max: 30},
			{Name: "mean_texture", Label: "Mean Texture", Kind: FieldNumber, Required: true, Min: 9, Max: 40},
			{Name: "mean_perimeter", Label: "Mean Perimeter", Kind: FieldNumber, Required: true, Min: 40, Max: 200},
			{Name: "mean_area", Label: "Mean Area", Kind: FieldNumber, Required: true, Min: 140, Max: 2600},
			{Name: "mean_smoothness", Label: "Mean Smoothness", Kind: FieldNumber, Required: true, Min: 0.05, Max: 0.17},
			{Name: "mean_concavity", Label: "Mean Concavity", Kind: FieldNumber, Required: false, Min: 0, Max: 0.5},
		},
		Scheme: ClassificationScheme{
			Kind:          SchemeBinary,
			PositiveLabel: "Malignant",
			NegativeLabel: "Benign",
		},
		RiskRules: []RiskRule{
			{Field: "mean_concavity", Op: RiskAbove, Threshold: 0.1, Severity: RiskHigh, Description: "Pronounced nuclear concavity is strongly associated with malignancy"},
			{Field: "mean_radius", Op: RiskAbove, Threshold: 15, Severity: RiskModerate, Description: "Enlarged mean nuclear radius is associated with malignancy"},
			{Field: "mean_area", Op: RiskAbove, Threshold: 700, Severity: RiskModerate, Description: "Enlarged mean nuclear area is associated with malignancy"},
		},
	}
}

// Alzheimer's staging class codes, ordered by ascending clinical severity.
const (
	StageCognitivelyNormal = "CN"
	StageEarlyMCI          = "EMCI"
	StageLateMCI           = "LMCI"
	StageAlzheimers        = "AD"
)

// AlzheimersModel stages cognitive decline across the four-class
// CN / EMCI / LMCI / AD scale.
func AlzheimersModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "alzheimers",
		Name:        "Alzheimer's Disease Staging",
		Description: "Four-stage cognitive decline classification from neuropsychological scores",
		Fields: []FieldSpec{
			{Name: "age", Label: "Age", Kind: FieldNumber, Required: true, Min: 40, Max: 110, Unit: "years"},
			{Name: "mmse", Label: "Mini-Mental State Examination", Kind: FieldNumber, Required: true, Min: 0, Max: 30},
			{Name: "cdr", Label: "Clinical Dementia Rating", Kind: FieldNumber, Required: true, Min: 0, Max: 3},
			{Name: "education_years", Label: "Years of Education", Kind: FieldNumber, Required: false, Min: 0, Max: 25, Unit: "years"},
			{Name: "apoe4_carrier", Label: "APOE e4 Carrier", Kind: FieldBoolean, Required: false},
		},
		Scheme: ClassificationScheme{
			Kind: SchemeMultiClass,
			OrderedClasses: []ClassSpec{
				{Code: StageCognitivelyNormal, Label: "Cognitively Normal", SeverityRank: 0, Tier: TierLow},
				{Code: StageEarlyMCI, Label: "Early Mild Cognitive Impairment", SeverityRank: 1, Tier: TierModerate},
				{Code: StageLateMCI, Label: "Late Mild Cognitive Impairment", SeverityRank: 2, Tier: TierHigh},
				{Code: StageAlzheimers, Label: "Alzheimer's Disease", SeverityRank: 3, Tier: TierCritical},
			},
		},
		RiskRules: []RiskRule{
			{Field: "mmse", Op: RiskBelow, Threshold: 24, Severity: RiskHigh, Description: "MMSE below 24 indicates cognitive impairment"},
			{Field: "cdr", Op: RiskAbove, Threshold: 0.5, Severity: RiskHigh, Description: "CDR above 0.5 indicates at least mild dementia"},
			{Field: "age", Op: RiskAbove, Threshold: 75, Severity: RiskLow, Description: "Age above 75 carries elevated baseline dementia risk"},
		},
	}
}

// KidneyDiseaseModel assesses chronic kidney disease risk.
func KidneyDiseaseModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "kidney-disease",
		Name:        "Chronic Kidney Disease Assessment",
		Description: "Chronic kidney disease risk from renal panel results",
		Fields: []FieldSpec{
			{Name: "age", Label: "Age", Kind: FieldNumber, Required: true, Min: 0, Max: 120, Unit: "years"},
			{Name: "blood_pressure", Label: "Diastolic Blood Pressure", Kind: FieldNumber, Required: true, Min: 30, Max: 140, Unit: "mmHg"},
			{Name: "serum_creatinine", Label: "Serum Creatinine", Kind: FieldNumber, Required: true, Min: 0.2, Max: 15, Unit: "mg/dL"},
			{Name: "blood_urea", Label: "Blood Urea", Kind: FieldNumber, Required: true, Min: 5, Max: 250, Unit: "mg/dL"},
			{Name: "hemoglobin", Label: "Hemoglobin", Kind: FieldNumber, Required: true, Min: 3, Max: 18, Unit: "g/dL"},
			{Name: "albumin_grade", Label: "Urine Albumin Grade", Kind: FieldEnum, Required: false,
				AllowedValues: []string{"0", "1", "2", "3", "4", "5"}},
			{Name: "hypertension", Label: "Hypertension", Kind: FieldBoolean, Required: false},
		},
		Scheme: ClassificationScheme{
			Kind:          SchemeBinary,
			PositiveLabel: "Chronic kidney disease risk detected",
			NegativeLabel: "No chronic kidney disease risk detected",
		},
		RiskRules: []RiskRule{
			{Field: "serum_creatinine", Op: RiskAbove, Threshold: 1.3, Severity: RiskHigh, Description: "Creatinine above 1.3 mg/dL indicates reduced renal function"},
			{Field: "blood_urea", Op: RiskAbove, Threshold: 50, Severity: RiskModerate, Description: "Blood urea above 50 mg/dL indicates impaired clearance"},
			{Field: "hemoglobin", Op: RiskBelow, Threshold: 11, Severity: RiskModerate, Description: "Hemoglobin below 11 g/dL suggests renal anemia"},
			{Field: "blood_pressure", Op: RiskAbove, Threshold: 90, Severity: RiskModerate, Description: "Diastolic pressure above 90 mmHg accelerates renal decline"},
		},
	}
}

// LiverDiseaseModel assesses chronic liver disease risk.
func LiverDiseaseModel() *AssessmentModel {
	return &AssessmentModel{
		ID:          "liver-disease",
		Name:        "Liver Disease Assessment",
		Description: "Chronic liver disease risk from hepatic panel results",
		Fields: []FieldSpec{
			{Name: "age", Label: "Age", Kind: FieldNumber, Required: true, Min: 0, Max: 120, Unit: "years"},
			{Name: "total_bilirubin", Label: "Total Bilirubin", Kind: FieldNumber, Required: true, Min: 0.1, Max: 40, Unit: "mg/dL"},
			{Name: "alkaline_phosphatase", Label: "Alkaline Phosphatase", Kind: FieldNumber, Required: true, Min: 40, Max: 2500, Unit: "IU/L"},
			{Name: "alt", Label: "Alanine Aminotransferase", Kind: FieldNumber, Required: true, Min: 5, Max: 2000, Unit: "IU/L"},
			{Name: "ast", Label: "Aspartate Aminotransferase", Kind: FieldNumber, Required: true, Min: 5, Max: 3000, Unit: "IU/L"},
			{Name: "albumin", Label: "Albumin", Kind: FieldNumber, Required: true, Min: 0.5, Max: 6, Unit: "g/dL"},
			{Name: "total_proteins", Label: "Total Proteins", Kind: FieldNumber, Required: false, Min: 2, Max: 10, Unit: "g/dL"},
		},
		Scheme: ClassificationScheme{
			Kind:          SchemeBinary,
			PositiveLabel: "Liver disease risk detected",
			NegativeLabel: "No liver disease risk detected",
		},
		RiskRules: []RiskRule{
			{Field: "total_bilirubin", Op: RiskAbove, Threshold: 1.2, Severity: RiskHigh, Description: "Total bilirubin above 1.2 mg/dL indicates impaired hepatic clearance"},
			{Field: "alt", Op: RiskAbove, Threshold: 56, Severity: RiskModerate, Description: "ALT above 56 IU/L indicates hepatocellular injury"},
			{Field: "ast", Op: RiskAbove, Threshold: 40, Severity: RiskModerate, Description: "AST above 40 IU/L indicates hepatocellular injury"},
			{Field: "albumin", Op: RiskBelow, Threshold: 3.5, Severity: RiskModerate, Description: "Albumin below 3.5 g/dL suggests reduced synthetic function"},
		},
	}
}

// DefaultRegistry builds the registry of all built-in disease modules.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		DiabetesModel(),
		HeartDiseaseModel(),
		BreastCancerModel(),
		AlzheimersModel(),
		KidneyDiseaseModel(),
		LiverDiseaseModel(),
	)
}
