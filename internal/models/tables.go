package models

import "fmt"

func str(name string) Column     { return Column{Name: name, Kind: KindString} }
func num(name string) Column     { return Column{Name: name, Kind: KindNumeric} }
func integer(name string) Column { return Column{Name: name, Kind: KindInt} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }
func date(name string) Column    { return Column{Name: name, Kind: KindDate} }
func ts(name string) Column      { return Column{Name: name, Kind: KindTimestamp} }
func ref(name string) Column     { return Column{Name: name, Kind: KindUUID} }

var (
	Users = newTableSchema("users",
		str("username"), str("email"), str("password_hash"), str("full_name"), str("role"),
		boolean("is_active"), ts("last_login"), str("phone"), str("profile_photo"),
		str("refresh_token_hash"),
	)
	Classes = newTableSchema("classes",
		str("name"), str("grade_level"), str("stream"), str("academic_year"),
		integer("capacity"), str("room_number"), ref("class_teacher_id"),
	)
	Subjects = newTableSchema("subjects",
		str("name"), str("code"), str("department"), boolean("is_elective"),
		num("max_marks"), num("pass_mark"), str("description"), integer("credit_hours"),
	)
	Teachers = newTableSchema("teachers",
		str("teacher_id"), ref("user_id"), str("first_name"), str("last_name"),
		date("date_of_birth"), str("gender"), str("nationality"), str("national_id"),
		str("photo_url"), str("phone"), str("alt_phone"), str("email"), str("address"),
		str("specialization"), str("qualification"), date("hire_date"), str("status"),
		num("salary"), str("bank_name"), str("bank_account"), str("tax_id"),
	)
	TeacherSubjects = newTableSchema("teacher_subjects",
		ref("teacher_id"), ref("subject_id"), ref("class_id"), str("academic_year"),
	)
	Students = newTableSchema("students",
		str("student_id"), str("first_name"), str("last_name"), str("middle_name"),
		date("date_of_birth"), str("gender"), str("nationality"), str("national_id"),
		str("birth_certificate_no"), str("photo_url"), str("religion"),
		ref("class_id"), date("admission_date"), str("admission_number"),
		str("academic_year"), str("status"), str("previous_school"),
		str("guardian_name"), str("guardian_phone"), str("guardian_alt_phone"),
		str("guardian_email"), str("guardian_relationship"), str("guardian_occupation"),
		str("guardian_address"), str("emergency_contact_name"), str("emergency_contact_phone"),
		str("blood_group"), str("medical_conditions"), str("allergies"), str("disability"),
		str("doctor_name"), str("doctor_phone"), boolean("uses_school_transport"),
	)
	TimetableSlots = newTableSchema("timetable_slots",
		ref("class_id"), ref("subject_id"), ref("teacher_id"), integer("day_of_week"),
		integer("period"), str("start_time"), str("end_time"), str("room"),
	)
	StudentAttendance = newTableSchema("student_attendance",
		ref("student_id"), ref("class_id"), date("date"), str("status"), str("remarks"),
		ref("marked_by"), str("term"), str("academic_year"),
	)
	TeacherAttendance = newTableSchema("teacher_attendance",
		ref("teacher_id"), date("date"), str("status"), str("time_in"), str("time_out"),
		str("leave_type"), str("remarks"), ref("marked_by"),
	)
	FeeStructures = newTableSchema("fee_structures",
		str("name"), str("fee_type"), ref("class_id"), num("amount"), str("academic_year"),
		str("term"), boolean("is_compulsory"), str("description"),
	)
	FeeInvoices = newTableSchema("fee_invoices",
		str("invoice_number"), ref("student_id"), str("academic_year"), str("term"),
		date("issue_date"), date("due_date"), num("total_amount"), num("paid_amount"),
		num("discount"), str("status"), str("notes"), ref("generated_by"),
	)
	FeeInvoiceItems = newTableSchema("fee_invoice_items",
		ref("invoice_id"), ref("fee_structure_id"), str("description"), num("amount"),
		integer("quantity"),
	)
	FeePayments = newTableSchema("fee_payments",
		ref("invoice_id"), str("receipt_number"), num("amount"), date("payment_date"),
		str("payment_method"), str("reference_number"), ref("received_by"), str("notes"),
		boolean("is_reversed"), str("reversal_reason"),
	)
	Exams = newTableSchema("exams",
		str("name"), str("exam_type"), str("academic_year"), str("term"),
		date("start_date"), date("end_date"), boolean("is_published"), str("description"),
		ref("created_by"),
	)
	ExamSchedules = newTableSchema("exam_schedules",
		ref("exam_id"), ref("subject_id"), ref("class_id"), date("exam_date"),
		str("start_time"), str("end_time"), str("venue"), num("max_marks"),
		num("pass_marks"), ref("invigilator_id"),
	)
	ExamResults = newTableSchema("exam_results",
		ref("exam_id"), ref("student_id"), ref("subject_id"), num("marks_obtained"),
		num("max_marks"), str("grade"), integer("points"), integer("position"),
		str("remarks"), boolean("is_absent"), ref("entered_by"),
	)
	Books = newTableSchema("books",
		str("title"), str("isbn"), str("author"), str("publisher"), integer("publication_year"),
		str("edition"), str("category"), ref("subject_id"), str("shelf_location"),
		integer("total_copies"), integer("available_copies"), num("purchase_price"),
		date("purchase_date"), str("description"), str("cover_image_url"),
	)
	LibraryIssues = newTableSchema("library_issues",
		ref("book_id"), ref("student_id"), ref("teacher_id"), date("issue_date"),
		date("due_date"), date("return_date"), boolean("is_returned"), num("fine_per_day"),
		num("fine_amount"), boolean("fine_paid"), date("fine_paid_date"),
		str("condition_on_issue"), str("condition_on_return"), str("notes"),
		ref("issued_by"), ref("received_by"),
	)
	Buses = newTableSchema("buses",
		str("registration_number"), str("bus_number"), str("make"), str("model"),
		integer("year"), integer("capacity"), str("status"), str("driver_name"),
		str("driver_phone"), str("driver_license"), date("insurance_expiry"),
		date("last_service_date"), str("notes"),
	)
	TransportRoutes = newTableSchema("transport_routes",
		str("name"), ref("bus_id"), str("description"), str("stops"),
		str("morning_departure"), str("afternoon_departure"), num("monthly_fee"),
		boolean("is_active"),
	)
	TransportAssignments = newTableSchema("transport_assignments",
		ref("student_id"), ref("bus_id"), ref("route_id"), str("pickup_point"),
		date("start_date"), date("end_date"), boolean("is_active"), str("notes"),
	)
	InventoryItems = newTableSchema("inventory_items",
		str("name"), str("asset_tag"), str("category"), str("description"),
		integer("quantity"), str("unit"), str("condition"), str("location"),
		date("purchase_date"), num("purchase_price"), str("supplier"),
		date("warranty_expiry"), str("serial_number"), boolean("is_active"),
		str("notes"), str("photo_url"), ref("added_by"),
	)
	MaintenanceRecords = newTableSchema("maintenance_records",
		ref("item_id"), date("maintenance_date"), str("description"), num("cost"),
		str("performed_by"), date("next_maintenance_date"), str("condition_after"),
		ref("recorded_by"),
	)
	TransferRecords = newTableSchema("transfer_records",
		ref("student_id"), str("transfer_type"), date("transfer_date"), str("from_school"),
		str("to_school"), str("reason"), ref("approved_by"),
	)
	SuspensionRecords = newTableSchema("suspension_records",
		ref("student_id"), date("start_date"), date("end_date"), str("reason"),
		ref("issued_by"), boolean("reinstated"), str("reinstatement_notes"),
	)
	SalaryRecords = newTableSchema("salary_records",
		ref("teacher_id"), integer("month"), integer("year"), num("gross_salary"),
		num("deductions"), num("net_salary"), date("payment_date"), str("payment_method"),
		str("notes"), ref("paid_by"),
	)
)

// SyncOrder lists every replicated table with parents before children, so a
// cycle never pushes a row before the rows it references.
var SyncOrder = []*TableSchema{
	Users, Classes, Subjects, Teachers, TeacherSubjects,
	Students, TimetableSlots,
	StudentAttendance, TeacherAttendance,
	FeeStructures, FeeInvoices, FeeInvoiceItems, FeePayments,
	Exams, ExamSchedules, ExamResults,
	Books, LibraryIssues,
	Buses, TransportRoutes, TransportAssignments,
	InventoryItems, MaintenanceRecords,
	TransferRecords, SuspensionRecords, SalaryRecords,
}

var registry = func() map[string]*TableSchema {
	m := make(map[string]*TableSchema, len(SyncOrder))
	for _, s := range SyncOrder {
		if _, dup := m[s.Name]; dup {
			panic(fmt.Sprintf("models: table %q registered twice", s.Name))
		}
		m[s.Name] = s
	}
	return m
}()

// LookupTable resolves a table name to its schema.
func LookupTable(name string) (*TableSchema, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return s, nil
}
